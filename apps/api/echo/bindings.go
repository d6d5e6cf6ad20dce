package echoapi

import (
	"io/ioutil"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var orderingParam = "ordering"

// sorted applies the optional ?ordering=field|-field query to rows.
func sorted[T any](ctx echo.Context, rows []T) ([]T, error) {
	ord := core.ParseOrdering(ctx.QueryParam(orderingParam))
	if ord.Field == "" {
		return rows, nil
	}
	return resource.Sort(rows, ord) // unknown fields come back as an "ordering" field error
}

// pathID reads the :id route param.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// saveUpload stores the multipart file sent as field, if any, and returns its media URL.
func (s *server) saveUpload(ctx echo.Context, field, dir string) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", nil // not a multipart request, or no file
	}
	f, err := fh.Open()
	if err != nil {
		return "", fieldError(field, msgBadFormat)
	}
	defer f.Close()

	content, err := ioutil.ReadAll(f)
	if err != nil {
		return "", fieldError(field, msgBadFormat)
	}
	return s.opts.DB.SaveMedia(dir, fh.Filename, content), nil
}
