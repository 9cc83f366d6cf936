package models

import (
	"time"

	"github.com/lib/pq"
)

// Thread is a direct-message conversation. ParticipantKey is the sorted
// participant list joined with ":" and identifies a conversation uniquely.
type Thread struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	ParticipantIDs pq.Int64Array `json:"participant_ids" gorm:"type:bigint[]"`
	ParticipantKey string        `json:"-" gorm:"size:255;uniqueIndex"`
	LastMessageAt  time.Time     `json:"last_message_at" gorm:"index"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (t *Thread) HasParticipant(userID uint) bool {
	for _, id := range t.ParticipantIDs {
		if uint(id) == userID {
			return true
		}
	}
	return false
}

// Others returns every participant except userID.
func (t *Thread) Others(userID uint) []uint {
	out := make([]uint, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		if uint(id) != userID {
			out = append(out, uint(id))
		}
	}
	return out
}

type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ThreadID   uint      `json:"thread_id" gorm:"index:idx_message_thread_created,priority:1"`
	FromUserID uint      `json:"from_user_id" gorm:"index"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_message_thread_created,priority:2"`
}

// ThreadRead records when a user last read a thread.
type ThreadRead struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	UserID   uint      `json:"user_id" gorm:"uniqueIndex:idx_thread_read_user"`
	ThreadID uint      `json:"thread_id" gorm:"uniqueIndex:idx_thread_read_user"`
	ReadAt   time.Time `json:"read_at"`
}

type StartThreadRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,notblank,max=1000"`
}

type SharePostRequest struct {
	PostID           string `json:"post_id" validate:"required,len=24"`
	TargetProfileIDs []uint `json:"target_profile_ids" validate:"required,min=1,max=100"`
}

type BulkSendRequest struct {
	ProfileIDs []uint `json:"profile_ids" validate:"required,min=1,max=500"`
	Text       string `json:"text" validate:"required,notblank,max=2000"`
}
