package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	NotifMessage            = "MESSAGE"
	NotifMention            = "MENTION"
	NotifFollow             = "FOLLOW"
	NotifComment            = "COMMENT"
	NotifCallsheetPublished = "CALLSHEET_PUBLISHED"
	NotifCalltimeChanged    = "CALLTIME_CHANGED"
	NotifScheduleUpdated    = "SCHEDULE_UPDATED"
	NotifProject            = "PROJECT"
	NotifSystem             = "SYSTEM"

	LevelInfo       = "INFO"
	LevelActionable = "ACTIONABLE"
	LevelCritical   = "CRITICAL"

	ContextPost    = "POST"
	ContextThread  = "thread"
	ContextProfile = "profile"
	ContextProject = "project"
	ContextBrief   = "brief"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index:idx_notification_user_created,priority:1"`
	Type        string         `json:"type" gorm:"size:30;index"`
	Level       string         `json:"level" gorm:"size:20;default:'INFO'"`
	Title       string         `json:"title"`
	Body        string         `json:"body,omitempty"`
	ContextType string         `json:"context_type,omitempty" gorm:"size:30;index:idx_notification_context"`
	ContextID   string         `json:"context_id,omitempty" gorm:"size:64;index:idx_notification_context"`
	ActorUserID *uint          `json:"actor_user_id,omitempty"`
	Data        datatypes.JSON `json:"data,omitempty"`
	IsRead      bool           `json:"is_read" gorm:"default:false;index"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_notification_user_created,priority:2"`
}

// NotificationPref holds delivery preferences. Absent rows mean defaults.
type NotificationPref struct {
	ID           uint           `json:"-" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"uniqueIndex"`
	EmailEnabled bool           `json:"email_enabled"`
	Digest       string         `json:"digest" gorm:"size:10"`
	QuietStart   string         `json:"quiet_start,omitempty" gorm:"size:5"`
	QuietEnd     string         `json:"quiet_end,omitempty" gorm:"size:5"`
	Categories   datatypes.JSON `json:"categories"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DefaultNotificationPref is returned when the user never saved preferences.
func DefaultNotificationPref(userID uint) NotificationPref {
	return NotificationPref{
		UserID:       userID,
		EmailEnabled: true,
		Digest:       "off",
		Categories:   datatypes.JSON("{}"),
	}
}

// NotificationMute silences one context until Until, or forever when nil.
type NotificationMute struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_notification_mute"`
	ContextType string     `json:"context_type" gorm:"size:30;uniqueIndex:idx_notification_mute"`
	ContextID   string     `json:"context_id" gorm:"size:64;uniqueIndex:idx_notification_mute"`
	Until       *time.Time `json:"until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ContextReadRequest struct {
	ContextType string `json:"context_type" validate:"required,max=30"`
	ContextID   string `json:"context_id" validate:"required,max=64"`
}

type SetPrefsRequest struct {
	EmailEnabled *bool           `json:"email_enabled"`
	Digest       *string         `json:"digest" validate:"omitempty,oneof=off daily weekly"`
	QuietStart   *string         `json:"quiet_start" validate:"omitempty,datetime=15:04"`
	QuietEnd     *string         `json:"quiet_end" validate:"omitempty,datetime=15:04"`
	Categories   json.RawMessage `json:"categories"`
}

type MuteRequest struct {
	ContextType string     `json:"context_type" validate:"required,max=30"`
	ContextID   string     `json:"context_id" validate:"required,max=64"`
	Until       *time.Time `json:"until"`
}
