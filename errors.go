package vcmstore

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/blueprint"
	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
)

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, blueprint.ErrNotFound),
		errors.Is(err, cluster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrDuplicateSlug):
		return http.StatusConflict
	case errors.Is(err, blueprint.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusOf(err)
	if code >= 500 {
		a.Log.Error("server error",
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", code),
			zap.Error(err))
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		} else if code < 500 || code == http.StatusServiceUnavailable {
			msg = err.Error()
		}
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}

	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound())
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError())
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
