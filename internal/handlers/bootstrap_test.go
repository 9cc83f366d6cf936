package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseHandle(t *testing.T) {
	uid := "AbCdEfGhIj"
	tests := []struct {
		name string
		user models.User
		want string
	}{
		{"plain", models.User{ID: 1, Email: "maya@example.com"}, "maya"},
		{"repeated separators", models.User{ID: 1, Email: "a..b@x"}, "a__b"},
		{"edge separators", models.User{ID: 1, Email: "_x.@y"}, "_x_"},
		{"upper case", models.User{ID: 1, Email: "Maya.Lin@example.com"}, "maya_lin"},
		{"cut", models.User{ID: 1, Email: "averyveryverylongname.x@y"}, "averyveryverylongnam"},
		{"empty local part", models.User{ID: 42, Email: "@example.com"}, "user_42"},
		{"firebase uid", models.User{ID: 42, FirebaseUID: &uid}, "user_abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, baseHandle(&tt.user))
		})
	}
}

func TestEnsureProfileSuffixesTakenHandle(t *testing.T) {
	users := newFakeUsers(models.User{ID: 5, Name: " ", Email: "maya@example.com"})
	profiles := newFakeProfiles(
		models.Profile{ID: 1, UserID: 1, Handle: "maya"},
		models.Profile{ID: 2, UserID: 2, Handle: "maya1"},
	)
	b := NewProfileBootstrapper(users, profiles)

	p, err := b.EnsureProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "maya2", p.Handle)
	assert.Equal(t, "maya2", p.DisplayName)
	assert.Equal(t, "Creator", p.Profession)

	again, err := b.EnsureProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
}

func TestEnsureProfileGivesUpAfterLastSuffix(t *testing.T) {
	users := newFakeUsers(models.User{ID: 500, Email: "crew@example.com"})
	profiles := newFakeProfiles(models.Profile{ID: 1, UserID: 1, Handle: "crew"})
	for i := 1; i <= maxHandleSuffix; i++ {
		profiles.rows[uint(i+1)] = &models.Profile{ID: uint(i + 1), UserID: uint(i + 1), Handle: fmt.Sprintf("crew%d", i)}
	}
	profiles.nextID = maxHandleSuffix + 1
	b := NewProfileBootstrapper(users, profiles)

	_, err := b.EnsureProfile(context.Background(), 500)
	assert.ErrorIs(t, err, repositories.ErrConflict)

	delete(profiles.rows, uint(maxHandleSuffix+1))
	p, err := b.EnsureProfile(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("crew%d", maxHandleSuffix), p.Handle)
}
