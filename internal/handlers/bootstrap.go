package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
)

const (
	maxHandleLen      = 20
	maxHandleSuffix   = 100
	defaultProfession = "Creator"
)

// ProfileBootstrapper creates the profile of a user on first use.
type ProfileBootstrapper struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
}

func NewProfileBootstrapper(users repositories.UserRepository, profiles repositories.ProfileRepository) *ProfileBootstrapper {
	return &ProfileBootstrapper{users: users, profiles: profiles}
}

// EnsureProfile returns the user's profile, creating it when missing.
func (b *ProfileBootstrapper) EnsureProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	p, err := b.profiles.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	user, err := b.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	handle, err := b.freeHandle(ctx, baseHandle(user))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = handle
	}
	p = &models.Profile{
		UserID:      userID,
		Handle:      handle,
		DisplayName: name,
		Profession:  defaultProfession,
		Professions: []string{},
		AccountType: models.AccountPersonal,
	}
	if err := b.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// Lost a race with a concurrent bootstrap.
			return b.profiles.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}

func baseHandle(u *models.User) string {
	local := u.Email
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	if h := textutil.BaseHandle(local, maxHandleLen); h != "" {
		return h
	}
	uid := fmt.Sprint(u.ID)
	if u.FirebaseUID != nil && *u.FirebaseUID != "" {
		uid = strings.ToLower(*u.FirebaseUID)
	}
	if len(uid) > 6 {
		uid = uid[:6]
	}
	return "user_" + uid
}

func (b *ProfileBootstrapper) freeHandle(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 0; i <= maxHandleSuffix; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		_, taken, err := b.profiles.HandleOwner(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free handle for %q: %w", base, repositories.ErrConflict)
}
