package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/bizgram/backend/internal/middleware"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respond writes the success envelope.
func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{
		"success": true,
		"data":    data,
	})
}

// respondPage writes a cursor listing.
func respondPage(c echo.Context, data interface{}, next *string) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    data,
		"meta": echo.Map{
			"next_cursor":   next,
			"has_next_page": next != nil,
		},
	})
}

// storeError maps repository errors onto HTTP errors. Unknown errors are
// logged and hidden behind a 500.
func storeError(log *zap.Logger, err error, what string) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	case errors.Is(err, repositories.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, what+" already exists")
	case errors.Is(err, pagination.ErrInvalidCursor):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
	}
	log.Error("request failed", zap.String("resource", what), zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

// bindAndValidate binds the request body and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func currentUser(c echo.Context) (uint, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// pageParams reads ?cursor= and ?limit= for a listing.
func pageParams(c echo.Context, def, max int) (*pagination.Cursor, int, error) {
	cur, err := pagination.Decode(c.QueryParam("cursor"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
	}
	return cur, pagination.ClampLimit(c.QueryParam("limit"), def, max), nil
}

var errForbidden = echo.NewHTTPError(http.StatusForbidden, "Forbidden")

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repositories.ErrConflict)
}

// currentUserOrZero is the caller on public routes, 0 when anonymous.
func currentUserOrZero(c echo.Context) uint {
	return middleware.UserID(c)
}
