package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	SessionName   = "bizgram_session"
	sessionUserID = "user_id"
	sessionMaxAge = 60 * 60 * 24 * 7
)

func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   sessionMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	return store
}

// Session installs the cookie session store.
func Session(store sessions.Store) echo.MiddlewareFunc {
	return session.Middleware(store)
}

// SessionUserID returns the user stored in the session, or 0.
func SessionUserID(c echo.Context) uint {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return 0
	}
	id, _ := sess.Values[sessionUserID].(uint)
	return id
}

func SetSessionUser(c echo.Context, userID uint) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionUserID] = userID
	return sess.Save(c.Request(), c.Response())
}

func ClearSession(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
