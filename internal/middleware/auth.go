package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// ContextUserID holds the resolved caller's user id.
	ContextUserID = "userID"
	TokenTTL      = 72 * time.Hour
)

var errNoToken = errors.New("missing bearer token")

// IDTokenVerifier is satisfied by *auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup resolves Firebase accounts to local users.
type UserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
}

// Authenticator issues local JWTs and resolves callers from a local JWT or a
// Firebase ID token.
type Authenticator struct {
	secret   []byte
	firebase IDTokenVerifier
	users    UserLookup
	log      *zap.Logger
}

func NewAuthenticator(secret string, firebase IDTokenVerifier, users UserLookup, log *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), firebase: firebase, users: users, log: log}
}

// IssueToken signs an HS256 token for user.
func (a *Authenticator) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parseLocal(tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// bearer reads "Authorization: Bearer <token>". Stream endpoints cannot set
// headers from the browser, so access_token is accepted as a fallback.
func bearer(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if t := c.QueryParam("access_token"); t != "" {
			return t, nil
		}
		return "", errNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// resolve tries the local JWT first, then a Firebase ID token.
func (a *Authenticator) resolve(c echo.Context, tokenString string) (uint, error) {
	if claims, err := a.parseLocal(tokenString); err == nil {
		return claims.UserID, nil
	}
	if a.firebase == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	ctx := c.Request().Context()
	token, err := a.firebase.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}
	user, err := a.users.GetUserByFirebaseUID(ctx, token.UID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, echo.NewHTTPError(http.StatusUnauthorized, "Account not linked, sign in with /auth/firebase-login first")
		}
		a.log.Error("firebase user lookup failed", zap.String("uid", token.UID), zap.Error(err))
		return 0, echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user")
	}
	return user.ID, nil
}

// RequireAuth rejects anonymous callers.
func (a *Authenticator) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearer(c)
			if err != nil {
				if errors.Is(err, errNoToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
				}
				return err
			}
			userID, err := a.resolve(c, token)
			if err != nil {
				return err
			}
			c.Set(ContextUserID, userID)
			return next(c)
		}
	}
}

// OptionalAuth resolves the caller when a token is present and lets anonymous
// callers through. A present but invalid token is still rejected.
func (a *Authenticator) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearer(c)
			if errors.Is(err, errNoToken) {
				return next(c)
			}
			if err != nil {
				return err
			}
			userID, err := a.resolve(c, token)
			if err != nil {
				return err
			}
			c.Set(ContextUserID, userID)
			return next(c)
		}
	}
}

// SessionAuth resolves the caller from the session cookie, falling back to
// a bearer token.
func (a *Authenticator) SessionAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID := SessionUserID(c); userID != 0 {
				c.Set(ContextUserID, userID)
				return next(c)
			}
			return a.RequireAuth()(next)(c)
		}
	}
}

// UserID returns the authenticated caller, or 0 for anonymous requests.
func UserID(c echo.Context) uint {
	id, _ := c.Get(ContextUserID).(uint)
	return id
}
