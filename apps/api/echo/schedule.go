package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/schedule"
)

var scheduleFields = []string{schedule.FieldClassroom, schedule.FieldTimeStart, schedule.FieldTimeEnd, schedule.FieldDesc}

type scheduleApi struct {
	svc *schedule.Service
}

func registerScheduleAPI(g *echo.Group, svc *schedule.Service) {
	api := scheduleApi{svc: svc}

	sg := g.Group("/schedule")
	sg.POST("/create", api.create)
	sg.POST("/edit", api.edit)
	sg.POST("/delete", api.destroy)
	sg.GET("/get", api.retrieve)
	sg.GET("/list", api.list)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	// the class is given by name under `class_name`
	cs := ps.changeSet(scheduleFields[1:], map[string]string{"class_name": schedule.FieldClassroom})
	sch, err := api.svc.Create(ctx.Request().Context(), cs)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{Detail: detailOk, UUID: sch.ID})
}

func (api *scheduleApi) edit(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	_, modified, err := api.svc.Edit(ctx.Request().Context(), ps.get("uuid"), ps.changeSet(scheduleFields))
	if err != nil {
		return errors.Wrap(err, "editing schedule")
	}
	if len(modified) == 0 {
		return ctx.NoContent(http.StatusNotModified)
	}
	return ctx.JSON(http.StatusOK, ModifiedResponse{Detail: detailOk, Modified: modified})
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ps.get("uuid")); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.JSON(http.StatusOK, DetailResponse{Detail: detailDeleted})
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	sch, err := api.svc.Get(ctx.Request().Context(), ps.get("uuid"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) list(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	schedules, err := api.svc.List(ctx.Request().Context(), ps.get("class_uuid"), ps.get("student_uuid"))
	if err != nil {
		return errors.Wrap(err, "listing schedules")
	}
	if schedules == nil {
		schedules = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}
