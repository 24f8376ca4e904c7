package http

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"

	xutil "GoldPredict/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ClientKey identifies the caller for rate limiting: the echo real IP
// without port.
func ClientKey(c echo.Context) string {
	ip := c.RealIP()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return strings.TrimSpace(ip)
}
