package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/crud"
)

var courseFields = []string{"name", "duration", "desc", "tags"}

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/course")
	cg.POST("/create", api.create)
	cg.POST("/edit", api.edit)
	cg.POST("/delete", api.destroy)
	cg.GET("/get", api.retrieve)
	cg.GET("/list", api.list)
	cg.GET("/get-tags", api.tags)
	cg.GET("/recommend-tags", api.recommendTags)
}

func (api *courseApi) create(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Create(ctx.Request().Context(), ps.changeSet(courseFields))
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{Detail: detailOk, UUID: crs.ID})
}

// edit targets the course by `uuid` or `name`. Renaming needs `uuid`.
func (api *courseApi) edit(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	_, modified, err := api.svc.Edit(ctx.Request().Context(), courseKey(ps), ps.changeSet(courseFields))
	if err != nil {
		return errors.Wrap(err, "editing course")
	}
	if len(modified) == 0 {
		return ctx.NoContent(http.StatusNotModified)
	}
	return ctx.JSON(http.StatusOK, ModifiedResponse{Detail: detailOk, Modified: modified})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), courseKey(ps)); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, DetailResponse{Detail: detailDeleted})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Get(ctx.Request().Context(), courseKey(ps))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) list(ctx echo.Context) error {
	courses, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) tags(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	var limit int
	if raw := core.CleanString(ps.get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return core.NewFieldError("limit", "must be a positive integer")
		}
	}
	tags, err := api.svc.Tags(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "counting tags")
	}
	if tags == nil {
		tags = []course.TagCount{}
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *courseApi) recommendTags(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	tags, err := api.svc.RecommendTags(ctx.Request().Context(), ps.get("txt"))
	if err != nil {
		return errors.Wrap(err, "recommending tags")
	}
	if tags == nil {
		tags = []string{}
	}
	return ctx.JSON(http.StatusOK, tags)
}

func courseKey(ps params) crud.Key {
	return crud.Key{UUID: ps.get("uuid"), Name: ps.get("name")}
}
