package vcmstore

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// RenderPage writes a public page, marking it noindex until it has been
// through the readiness gate.
func RenderPage(c echo.Context, meta PageMeta, cmp templ.Component) error {
	if meta.NoIndex {
		c.Response().Header().Set("X-Robots-Tag", "noindex")
	}
	return Render(c, cmp)
}
