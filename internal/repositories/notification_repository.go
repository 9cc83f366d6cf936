package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bell sources. Messages rank before notifications at equal timestamps.
const (
	SourceMessage      = "message"
	SourceNotification = "notification"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListForBell(ctx context.Context, userID uint, unreadOnly bool, after *pagination.Cursor, limit int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID uint) (int64, error)
	LatestAt(ctx context.Context, userID uint) (*time.Time, error)
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id uint) error
	MarkAllAsRead(ctx context.Context, userID uint) (int64, error)
	MarkContextRead(ctx context.Context, userID uint, contextType, contextID string) (int64, error)

	GetPrefs(ctx context.Context, userID uint) (*models.NotificationPref, error)
	SavePrefs(ctx context.Context, p *models.NotificationPref) error
	UpsertMute(ctx context.Context, m *models.NotificationMute) error
	DeleteMute(ctx context.Context, userID uint, contextType, contextID string) error
	MutedUserIDs(ctx context.Context, userIDs []uint, contextType, contextID string, now time.Time) (map[uint]bool, error)
	DeleteExpiredMutes(ctx context.Context, now time.Time) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.Level == "" {
		n.Level = models.LevelInfo
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// ListForBell returns up to limit notifications strictly after the bell
// cursor, newest first.
func (r *postgresNotificationRepository) ListForBell(ctx context.Context, userID uint, unreadOnly bool, after *pagination.Cursor, limit int) ([]models.Notification, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	if after != nil {
		if after.Source == SourceMessage {
			db = db.Where("created_at <= ?", after.At)
		} else {
			id, err := after.UintID()
			if err != nil {
				return nil, err
			}
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.At, after.At, id)
		}
	}
	rows := []models.Notification{}
	err := db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = false", userID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) LatestAt(ctx context.Context, userID uint) (*time.Time, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Select("created_at").Where("user_id = ?", userID).
		Order("created_at DESC").Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n.CreatedAt, nil
}

func (r *postgresNotificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, wrapNotFound("notification", err)
	}
	return &n, nil
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()}).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = false", userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) MarkContextRead(ctx context.Context, userID uint, contextType, contextID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND context_type = ? AND context_id = ? AND is_read = false", userID, contextType, contextID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}

// GetPrefs returns nil without error when the user has no saved preferences.
func (r *postgresNotificationRepository) GetPrefs(ctx context.Context, userID uint) (*models.NotificationPref, error) {
	var p models.NotificationPref
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresNotificationRepository) SavePrefs(ctx context.Context, p *models.NotificationPref) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_enabled", "digest", "quiet_start", "quiet_end", "categories", "updated_at"}),
	}).Create(p).Error
}

func (r *postgresNotificationRepository) UpsertMute(ctx context.Context, m *models.NotificationMute) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "context_type"}, {Name: "context_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"until"}),
	}).Create(m).Error
}

func (r *postgresNotificationRepository) DeleteMute(ctx context.Context, userID uint, contextType, contextID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND context_type = ? AND context_id = ?", userID, contextType, contextID).
		Delete(&models.NotificationMute{}).Error
}

// MutedUserIDs returns which of userIDs have an active mute on the context.
func (r *postgresNotificationRepository) MutedUserIDs(ctx context.Context, userIDs []uint, contextType, contextID string, now time.Time) (map[uint]bool, error) {
	out := map[uint]bool{}
	if len(userIDs) == 0 || contextType == "" || contextID == "" {
		return out, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.NotificationMute{}).
		Where("user_id IN ? AND context_type = ? AND context_id = ?", userIDs, contextType, contextID).
		Where("until IS NULL OR until > ?", now).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *postgresNotificationRepository) DeleteExpiredMutes(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("until IS NOT NULL AND until <= ?", now).Delete(&models.NotificationMute{})
	return res.RowsAffected, res.Error
}
