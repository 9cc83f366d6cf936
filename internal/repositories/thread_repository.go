package repositories

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadRepository defines the interface for direct-message threads
type ThreadRepository interface {
	GetThread(ctx context.Context, id uint) (*models.Thread, error)
	GetOrCreateThread(ctx context.Context, userIDs ...uint) (*models.Thread, error)
	ListThreads(ctx context.Context, userID uint, limit int) ([]models.Thread, error)
	SendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, threadID uint) ([]models.Message, error)
	LastMessages(ctx context.Context, threadIDs []uint) (map[uint]models.Message, error)
	LatestIncoming(ctx context.Context, threadID, userID uint, after *time.Time) (*models.Message, error)
	ReadTimes(ctx context.Context, userID uint, threadIDs []uint) (map[uint]time.Time, error)
	MarkRead(ctx context.Context, userID, threadID uint, at time.Time) error
}

// PostgresThreadRepository implements ThreadRepository for PostgreSQL
type PostgresThreadRepository struct {
	db *gorm.DB
}

// NewPostgresThreadRepository creates a new PostgresThreadRepository
func NewPostgresThreadRepository(db *gorm.DB) *PostgresThreadRepository {
	return &PostgresThreadRepository{db: db}
}

// ParticipantKey is the canonical identity of a participant set.
func ParticipantKey(userIDs []uint) (string, pq.Int64Array) {
	ids := make([]int64, 0, len(userIDs))
	seen := map[uint]bool{}
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, int64(id))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ":"), pq.Int64Array(ids)
}

func (r *PostgresThreadRepository) GetThread(ctx context.Context, id uint) (*models.Thread, error) {
	var t models.Thread
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, wrapNotFound("thread", err)
	}
	return &t, nil
}

// GetOrCreateThread returns the thread whose participants are exactly userIDs.
func (r *PostgresThreadRepository) GetOrCreateThread(ctx context.Context, userIDs ...uint) (*models.Thread, error) {
	key, ids := ParticipantKey(userIDs)
	var t models.Thread
	err := r.db.WithContext(ctx).
		Where(models.Thread{ParticipantKey: key}).
		Attrs(models.Thread{ParticipantIDs: ids, LastMessageAt: time.Now()}).
		FirstOrCreate(&t).Error
	if isUniqueViolation(err) {
		// lost a race with a concurrent create
		err = r.db.WithContext(ctx).Where("participant_key = ?", key).First(&t).Error
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListThreads returns the user's threads, most recently active first.
// A limit of zero returns all of them.
func (r *PostgresThreadRepository) ListThreads(ctx context.Context, userID uint, limit int) ([]models.Thread, error) {
	db := r.db.WithContext(ctx).
		Where("? = ANY(participant_ids)", int64(userID)).
		Order("last_message_at DESC").Order("id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	threads := []models.Thread{}
	err := db.Find(&threads).Error
	return threads, err
}

// SendMessage stores msg, bumps the thread and marks it read for the sender.
func (r *PostgresThreadRepository) SendMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Thread{}).Where("id = ?", msg.ThreadID).
			Update("last_message_at", msg.CreatedAt).Error; err != nil {
			return err
		}
		return upsertRead(tx, msg.FromUserID, msg.ThreadID, msg.CreatedAt)
	})
}

func upsertRead(tx *gorm.DB, userID, threadID uint, at time.Time) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
	}).Create(&models.ThreadRead{UserID: userID, ThreadID: threadID, ReadAt: at}).Error
}

func (r *PostgresThreadRepository) ListMessages(ctx context.Context, threadID uint) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).
		Order("created_at ASC").Order("id ASC").Find(&msgs).Error
	return msgs, err
}

// LastMessages returns the newest message of each thread.
func (r *PostgresThreadRepository) LastMessages(ctx context.Context, threadIDs []uint) (map[uint]models.Message, error) {
	out := make(map[uint]models.Message, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}
	var msgs []models.Message
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (thread_id) * FROM messages WHERE thread_id IN ? ORDER BY thread_id, created_at DESC, id DESC`,
		threadIDs,
	).Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ThreadID] = m
	}
	return out, nil
}

// LatestIncoming is the newest message in the thread not sent by userID and
// newer than after, if any.
func (r *PostgresThreadRepository) LatestIncoming(ctx context.Context, threadID, userID uint, after *time.Time) (*models.Message, error) {
	db := r.db.WithContext(ctx).Where("thread_id = ? AND from_user_id <> ?", threadID, userID)
	if after != nil {
		db = db.Where("created_at > ?", *after)
	}
	var m models.Message
	err := db.Order("created_at DESC").Order("id DESC").Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresThreadRepository) ReadTimes(ctx context.Context, userID uint, threadIDs []uint) (map[uint]time.Time, error) {
	out := make(map[uint]time.Time, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}
	var reads []models.ThreadRead
	if err := r.db.WithContext(ctx).Where("user_id = ? AND thread_id IN ?", userID, threadIDs).Find(&reads).Error; err != nil {
		return nil, err
	}
	for _, tr := range reads {
		out[tr.ThreadID] = tr.ReadAt
	}
	return out, nil
}

func (r *PostgresThreadRepository) MarkRead(ctx context.Context, userID, threadID uint, at time.Time) error {
	return upsertRead(r.db.WithContext(ctx), userID, threadID, at)
}
