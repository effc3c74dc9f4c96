package utils

import (
	"github.com/labstack/echo/v4"
	"github.com/srand/multinode/pkg/log"
)

// Echo middleware logging each request at trace level.
func HttpLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		log.Tracef("%4s %s %v %s", c.Request().Method, c.Request().URL, c.Response().Status, c.RealIP())
		return err
	}
}
