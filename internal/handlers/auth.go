package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/middleware"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs local access tokens.
type TokenIssuer interface {
	IssueToken(user *models.User) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	profiles       *ProfileBootstrapper
	firebaseAuth   middleware.IDTokenVerifier
	tokens         TokenIssuer
	log            *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables the provider login.
func NewAuthHandler(
	userRepo repositories.UserRepository,
	profiles *ProfileBootstrapper,
	firebaseAuth middleware.IDTokenVerifier,
	tokens TokenIssuer,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		profiles:       profiles,
		firebaseAuth:   firebaseAuth,
		tokens:         tokens,
		log:            log,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(public, private *echo.Group) {
	public.POST("/auth/signup", h.Signup)
	public.POST("/auth/signin", h.SignIn)
	public.POST("/auth/firebase-login", h.FirebaseLogin)
	public.POST("/auth/logout", h.Logout)
	private.GET("/me", h.Me)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := h.userRepository.GetUserByEmail(ctx, email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !isNotFound(err) {
		return storeError(h.log, err, "User")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if isConflict(err) {
			return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
		}
		return storeError(h.log, err, "User")
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		h.log.Error("issue token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return respond(c, http.StatusCreated, echo.Map{"token": token})
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), email)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return storeError(h.log, err, "User")
	}
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		h.log.Error("issue token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return respond(c, http.StatusOK, echo.Map{"token": token})
}

// FirebaseLogin exchanges a Firebase ID token for a local token and a
// session cookie.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Provider login is not configured")
	}
	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	idToken, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	uid := idToken.UID
	email, _ := idToken.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	name, _ := idToken.Claims["name"].(string)

	user, err := h.providerUser(c, uid, email, name)
	if err != nil {
		return err
	}
	if _, err := h.profiles.EnsureProfile(ctx, user.ID); err != nil {
		return storeError(h.log, err, "Profile")
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		h.log.Error("issue token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	if err := middleware.SetSessionUser(c, user.ID); err != nil {
		h.log.Warn("session save failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return respond(c, http.StatusOK, echo.Map{"token": token})
}

// providerUser finds the local user by provider uid, then by email, and
// creates one when neither matches.
func (h *AuthHandler) providerUser(c echo.Context, uid, email, name string) (*models.User, error) {
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		changed := false
		if email != "" && user.Email != email {
			user.Email = email
			changed = true
		}
		if name != "" && user.Name != name {
			user.Name = name
			changed = true
		}
		if changed {
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return nil, storeError(h.log, err, "User")
			}
		}
		return user, nil
	}
	if !isNotFound(err) {
		return nil, storeError(h.log, err, "User")
	}

	if email != "" {
		user, err = h.userRepository.GetUserByEmail(ctx, email)
		if err == nil {
			user.FirebaseUID = &uid
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return nil, storeError(h.log, err, "User")
			}
			return user, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, storeError(h.log, err, "User")
		}
	}

	user = &models.User{Name: name, Email: email, FirebaseUID: &uid}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, storeError(h.log, err, "User")
	}
	h.log.Info("provider user created", zap.Uint("user_id", user.ID))
	return user, nil
}

// Logout clears the session cookie. Bearer tokens expire on their own.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := middleware.ClearSession(c); err != nil {
		h.log.Warn("session clear failed", zap.Error(err))
	}
	return respond(c, http.StatusOK, echo.Map{"ok": true})
}

// Me returns the caller and their profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "User")
	}
	profile, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, echo.Map{"user": user, "profile": profile})
}
