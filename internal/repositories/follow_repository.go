package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow data operations.
// All ids are profile ids.
type FollowRepository interface {
	ToggleFollow(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	GetFollowingIDs(ctx context.Context, profileID uint) ([]uint, error)
	GetFollowing(ctx context.Context, profileID uint) ([]models.Profile, error)
	Counts(ctx context.Context, profileID uint) (followers, following int64, err error)
	FollowerCounts(ctx context.Context, profileIDs []uint) (map[uint]int64, error)
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// ToggleFollow flips the edge and reports whether it exists afterwards.
func (r *PostgresFollowRepository) ToggleFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	following := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Take(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			following = true
			return tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
		default:
			return err
		}
	})
	return following, err
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", followerID, followingID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, profileID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", profileID).Pluck("following_id", &ids).Error
	return ids, err
}

// GetFollowing lists followed profiles, most recent follow first.
func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, profileID uint) ([]models.Profile, error) {
	profiles := []models.Profile{}
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.following_id = profiles.id").
		Where("follows.follower_id = ?", profileID).
		Order("follows.created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

func (r *PostgresFollowRepository) Counts(ctx context.Context, profileID uint) (int64, int64, error) {
	var followers, following int64
	db := r.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("following_id = ?", profileID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", profileID).Count(&following).Error; err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}

// FollowerCounts batches follower counts for a page of profiles.
func (r *PostgresFollowRepository) FollowerCounts(ctx context.Context, profileIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(profileIDs))
	if len(profileIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		FollowingID uint
		Count       int64
	}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Select("following_id, COUNT(*) AS count").
		Where("following_id IN ?", profileIDs).
		Group("following_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.FollowingID] = row.Count
	}
	return out, nil
}
