package http

import "github.com/labstack/echo/v4"

// Handler is one HTTP surface mounted on the shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
