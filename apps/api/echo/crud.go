package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

// request is the body of a create or update.
type request[T resource.Record] interface {
	// check validates references and uniqueness; id is 0 on create.
	check(db *inmemdb.DB, id int) error
	// apply copies the request onto current (the zero row on create).
	apply(current T) T
}

type crudPaths struct {
	list, create, update, delete string
}

// crud serves list/create/update/delete of one table. R is the request body type.
type crud[T resource.Record, R any, PR interface {
	*R
	request[T]
}] struct {
	s        *server
	table    *inmemdb.Table[T]
	upload   func(ctx echo.Context, req PR) error // multipart files, optional
	onDelete func(id int)                         // cascades, optional
}

func (h crud[T, R, PR]) register(g *echo.Group, paths crudPaths) {
	g.GET(paths.list, h.query)
	g.POST(paths.create, h.create)
	g.PUT(paths.update+"/:id", h.update)
	g.DELETE(paths.delete+"/:id", h.destroy)
}

func (h crud[T, R, PR]) query(ctx echo.Context) error {
	rows, err := sorted(ctx, h.table.All())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (h crud[T, R, PR]) bind(ctx echo.Context, id int) (PR, error) {
	req := PR(new(R))
	if err := ctx.Bind(req); err != nil {
		return nil, errors.Wrap(err, "binding request")
	}
	if err := core.ValidateStruct(h.s.validate, h.s.translator, req); err != nil {
		return nil, err
	}
	if err := req.check(h.s.opts.DB, id); err != nil {
		return nil, err
	}
	if h.upload != nil {
		if err := h.upload(ctx, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (h crud[T, R, PR]) create(ctx echo.Context) error {
	req, err := h.bind(ctx, 0)
	if err != nil {
		return err
	}
	var zero T
	row := h.table.Create(req.apply(zero))
	return ctx.JSON(http.StatusCreated, row)
}

func (h crud[T, R, PR]) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	current, err := h.table.Get(id)
	if err != nil {
		return errHttpNotFound
	}
	req, err := h.bind(ctx, id)
	if err != nil {
		return err
	}
	row, err := h.table.Update(req.apply(current))
	if err != nil {
		return errHttpNotFound // deleted meanwhile
	}
	return ctx.JSON(http.StatusOK, row)
}

func (h crud[T, R, PR]) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := h.table.Delete(id); err != nil {
		return errHttpNotFound
	}
	if h.onDelete != nil {
		h.onDelete(id)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// lookup serves a read-only list.
func lookup[T any](rows func() []T) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		items, err := sorted(ctx, rows())
		if err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}
		return ctx.JSON(http.StatusOK, items)
	}
}
