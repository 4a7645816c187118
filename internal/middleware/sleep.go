package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
)

// Sleeper mimics a hosted instance that was suspended while idle: every
// request answers 503 until the health endpoint is hit.
type Sleeper struct {
	asleep     atomic.Bool
	healthPath string
}

func NewSleeper(healthPath string, asleep bool) *Sleeper {
	s := &Sleeper{healthPath: healthPath}
	s.asleep.Store(asleep)
	return s
}

func (s *Sleeper) Sleep()       { s.asleep.Store(true) }
func (s *Sleeper) Asleep() bool { return s.asleep.Load() }

func (s *Sleeper) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().URL.Path == s.healthPath {
			s.asleep.Store(false)
			return next(c)
		}
		if s.asleep.Load() {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service is waking up"})
		}
		return next(c)
	}
}
