package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for post likes
type LikeRepository interface {
	ToggleLike(ctx context.Context, postID string, userID uint) (bool, error)
	HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	CountsByPosts(ctx context.Context, postIDs []string) (map[string]int64, error)
	LikedPostIDs(ctx context.Context, userID uint, max int) ([]string, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// ToggleLike removes an existing like or creates one. It reports whether the
// post is liked afterwards.
func (r *PostgresLikeRepository) ToggleLike(ctx context.Context, postID string, userID uint) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Take(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			return tx.Create(&models.Like{PostID: postID, UserID: userID}).Error
		default:
			return err
		}
	})
	return liked, err
}

func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresLikeRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// CountsByPosts returns like counts for a page of posts in one grouped query.
func (r *PostgresLikeRepository) CountsByPosts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PostID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.Count
	}
	return out, nil
}

func (r *PostgresLikeRepository) LikedPostIDs(ctx context.Context, userID uint, max int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(max).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *PostgresLikeRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{}).Error
}
