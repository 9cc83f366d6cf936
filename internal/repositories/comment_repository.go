package repositories

import (
	"context"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for post comments
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string, cursor *pagination.Cursor, limit int) ([]models.Comment, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListByPost returns up to limit+1 comments oldest first, starting at cursor.
func (r *PostgresCommentRepository) ListByPost(ctx context.Context, postID string, cursor *pagination.Cursor, limit int) ([]models.Comment, error) {
	db, err := pagination.KeysetAsc(r.db.WithContext(ctx).Where("post_id = ?", postID), "created_at", cursor)
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	err = db.Order("created_at ASC").Order("id ASC").Limit(limit + 1).Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *PostgresCommentRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{}).Error
}
