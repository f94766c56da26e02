package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/crud"
)

var classFields = []string{class.FieldName, class.FieldStatus, class.FieldDesc, class.FieldCourse, class.FieldTeacher}

type (
	ClassCreatedResponse struct {
		Detail        string      `json:"detail"`
		UUID          uuid.UUID   `json:"uuid"`
		TeacherAdded  bool        `json:"teacher_added"`
		StudentsAdded []uuid.UUID `json:"students_added"`
	}

	StudentsAddedResponse struct {
		Detail        string      `json:"detail"`
		StudentsAdded []uuid.UUID `json:"students_added"`
	}

	ClassResponse struct {
		Detail string      `json:"detail"`
		Data   class.Class `json:"data"`
	}
)

type classApi struct {
	svc *class.Service
}

func registerClassAPI(g *echo.Group, svc *class.Service) {
	api := classApi{svc: svc}

	cg := g.Group("/class")
	cg.POST("/create", api.create)
	cg.POST("/add-student", api.addStudents)
	cg.POST("/delete-student", api.removeStudents)
	cg.POST("/edit", api.edit)
	cg.POST("/delete", api.destroy)
	cg.GET("/list", api.list)
}

func (api *classApi) create(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Create(ctx.Request().Context(), class.NewClass{
		Name:     ps.get("name"),
		Status:   ps.get("status"),
		Desc:     ps.get("desc"),
		Course:   ps.get("course_name"),
		Teacher:  ps.get("teacher_uuid"),
		Students: ps.get("std_uuids"),
	})
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, ClassCreatedResponse{
		Detail:        detailOk,
		UUID:          res.Class.ID,
		TeacherAdded:  res.TeacherAdded,
		StudentsAdded: nonNilUUIDs(res.StudentsAdded),
	})
}

func (api *classApi) addStudents(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	added, err := api.svc.AddStudents(ctx.Request().Context(), classKey(ps), ps.get("uuids"))
	if err != nil {
		return errors.Wrap(err, "adding students")
	}
	return ctx.JSON(http.StatusAccepted, StudentsAddedResponse{Detail: detailOk, StudentsAdded: nonNilUUIDs(added)})
}

func (api *classApi) removeStudents(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.RemoveStudents(ctx.Request().Context(), classKey(ps), ps.get("uuids")); err != nil {
		return errors.Wrap(err, "removing students")
	}
	return ctx.JSON(http.StatusAccepted, DetailResponse{Detail: detailOk})
}

// edit targets the class by `uuid`, or by `target_name` since `name` is editable.
func (api *classApi) edit(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	key := crud.Key{UUID: ps.get("uuid"), Name: ps.get("target_name")}
	cls, modified, err := api.svc.Edit(ctx.Request().Context(), key, ps.changeSet(classFields))
	if err != nil {
		return errors.Wrap(err, "editing class")
	}
	if len(modified) == 0 {
		return ctx.NoContent(http.StatusNotModified)
	}
	return ctx.JSON(http.StatusAccepted, ModifiedResponse{Detail: detailOk, Modified: modified, Data: cls})
}

func (api *classApi) destroy(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	cls, err := api.svc.Delete(ctx.Request().Context(), classKey(ps))
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.JSON(http.StatusAccepted, ClassResponse{Detail: detailOk, Data: cls})
}

// list lists the classes of the student given by `uuid`, or all classes.
func (api *classApi) list(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	summaries, err := api.svc.List(ctx.Request().Context(), ps.get("uuid"))
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	if summaries == nil {
		summaries = []class.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func classKey(ps params) crud.Key {
	return crud.Key{UUID: ps.get("uuid"), Name: ps.get("name")}
}

func nonNilUUIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
