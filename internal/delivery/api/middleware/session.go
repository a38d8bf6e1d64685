package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	deliverycontext "threads/internal/delivery/context"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
)

const contextKeyUID = "uid"

// SessionMiddleware gates routes on the session held by the session store.
type SessionMiddleware struct {
	store usecase.SessionStore
}

// NewSessionMiddleware is the constructor for SessionMiddleware.
func NewSessionMiddleware(store usecase.SessionStore) *SessionMiddleware {
	return &SessionMiddleware{store: store}
}

// RequireSession rejects requests while nobody is signed in. A bearer token,
// when sent, must be the token of the live session.
func (m *SessionMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := m.store.CurrentSession()
		if session == nil {
			return errors.WithStack(domainerrors.ErrUnauthenticated)
		}

		if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || subtle.ConstantTimeCompare([]byte(token), []byte(session.Token)) != 1 {
				return errors.WithStack(domainerrors.ErrUnauthenticated.WithDetails("token does not belong to the current session"))
			}
		}

		c.Set(contextKeyUID, session.UID)
		deliverycontext.AddLoggerAttrs(c, nil, slog.String("uid", session.UID))

		return next(c)
	}
}

// GetUID returns the uid stored by RequireSession.
func GetUID(c echo.Context) (string, bool) {
	uid, ok := c.Get(contextKeyUID).(string)

	return uid, ok && uid != ""
}
