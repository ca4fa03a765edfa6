package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const contextKey = "session"

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Middleware loads the visitor's session before the handler runs and saves it
// afterwards when it was modified. Responses with a 5xx status are not saved,
// so a failed request leaves the stored session untouched.
func Middleware(store Store, opts Options, log *zap.Logger) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var s *Session
		if id, err := c.Cookie(opts.CookieName); err == nil && id != "" {
			loaded, err := store.Load(ctx, id)
			switch {
			case err == nil:
				s = loaded
			case errors.Is(err, ErrNotFound):
			default:
				log.Error("Failed to load session", zap.Error(err))
			}
		}
		if s == nil {
			s = New(uuid.NewString())
		}

		// Headers are flushed with the body, so the cookie has to go out first.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, s.ID, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
		c.Set(contextKey, s)

		c.Next()

		if !s.Modified() || c.Writer.Status() >= http.StatusInternalServerError {
			return
		}
		if err := store.Save(ctx, s); err != nil {
			log.Error("Failed to save session", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

// FromContext returns the request's session, or nil when Middleware is not
// installed on the route.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}
