package validators

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `validate:"required,notblank,max=5"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&sample{Name: "ok"}))

	err := v.Validate(&sample{Name: "   "})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Contains(t, he.Message, "notblank")

	err = v.Validate(&sample{Name: "toolong"})
	require.Error(t, err)
	assert.Contains(t, err.(*echo.HTTPError).Message, "max")
}
