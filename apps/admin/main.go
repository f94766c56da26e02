package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
	appfs "github.com/trezcool/classroom/fs"
	emailsvc "github.com/trezcool/classroom/services/email"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/blob"
	"github.com/trezcool/classroom/storage/database"
	sqlxdb "github.com/trezcool/classroom/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	errAndDie(logger, "creating database", database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(logger, "opening database", err)

	store, err := blob.Open(context.Background(), conf.Blob)
	errAndDie(logger, "opening blob store", err)

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	errAndDie(logger, "parsing email templates", err)

	vld := core.NewValidator(user.InitValidators, schedule.InitValidators)
	mailSvc := emailsvc.NewConsoleService(conf, tmpls, logger)

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxdb.NewUserRepository(db), mailSvc, store, vld, conf),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, msg string, err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%s: %v", msg, err), err)
	}
}
