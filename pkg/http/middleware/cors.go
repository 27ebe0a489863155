package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration. An empty AllowOrigins allows none.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

func (cfg CORSConfig) allowed(origin string) (string, bool) {
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			if origin == "" {
				return "*", true
			}
			return origin, true
		}
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

// CORS lets the dashboard be served from another origin than the API.
// WebSocket upgrades are left to the upgrader's own origin check.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if strings.EqualFold(req.Header.Get(echo.HeaderUpgrade), "websocket") {
				return next(c)
			}

			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			allowOrigin, ok := cfg.allowed(req.Header.Get(echo.HeaderOrigin))
			if !ok {
				return next(c)
			}
			h.Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)

			if req.Method != http.MethodOptions {
				return next(c)
			}

			// preflight
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if cfg.MaxAge > 0 {
				h.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(int(cfg.MaxAge.Seconds())))
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
