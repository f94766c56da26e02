package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
	appfs "github.com/trezcool/classroom/fs"
	emailsvc "github.com/trezcool/classroom/services/email"
	logsvc "github.com/trezcool/classroom/services/logger"
	metricsvc "github.com/trezcool/classroom/services/metrics"
	"github.com/trezcool/classroom/storage/blob"
	"github.com/trezcool/classroom/storage/database"
	inmemdb "github.com/trezcool/classroom/storage/database/inmem"
	sqlxdb "github.com/trezcool/classroom/storage/database/sqlx"
)

type repositories struct {
	users     user.Repository
	courses   course.Repository
	classes   class.Repository
	schedules schedule.Repository
	close     func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := repos.close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	store, err := blob.Open(context.Background(), conf.Blob)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls, logger)
	}

	vld := core.NewValidator(user.InitValidators, schedule.InitValidators)
	usrSvc := user.NewService(repos.users, mailSvc, store, vld, conf)
	crsSvc := course.NewService(repos.courses, vld)
	clsSvc := class.NewService(repos.classes, repos.courses, repos.users, user.NewRolePolicy(conf.Policy), vld)
	schSvc := schedule.NewService(repos.schedules, repos.classes, repos.users, vld)

	metrics := metricsvc.NewCollector("masomo")

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	http.DefaultServeMux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(conf.Server.Host, shutdown, &echoapi.Deps{
		Conf:        conf,
		Logger:      logger,
		Validator:   vld,
		Metrics:     metrics,
		UserSvc:     usrSvc,
		CourseSvc:   crsSvc,
		ClassSvc:    clsSvc,
		ScheduleSvc: schSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the configured database engine. PostgreSQL gets created and migrated when needed.
func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == core.EngineInmem {
		db := inmemdb.NewDB()
		return &repositories{
			users:     inmemdb.NewUserRepository(db),
			courses:   inmemdb.NewCourseRepository(db),
			classes:   inmemdb.NewClassRepository(db),
			schedules: inmemdb.NewScheduleRepository(db),
			close:     func() error { return nil },
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:     sqlxdb.NewUserRepository(db),
		courses:   sqlxdb.NewCourseRepository(db),
		classes:   sqlxdb.NewClassRepository(db),
		schedules: sqlxdb.NewScheduleRepository(db),
		close:     db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
