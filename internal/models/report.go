package models

import "time"

// Report is a moderation flag raised by a user
type Report struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ReporterUserID uint      `json:"reporter_user_id" gorm:"index"`
	TargetType     string    `json:"target_type" gorm:"size:20;index:idx_report_target"`
	TargetID       string    `json:"target_id" gorm:"size:64;index:idx_report_target"`
	Reason         string    `json:"reason" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateReportRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=post profile"`
	TargetID   string `json:"target_id" validate:"required,max=64"`
	Reason     string `json:"reason" validate:"required,min=3,max=500"`
}

type SignedUploadRequest struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path" validate:"required,max=512"`
	ContentType string `json:"content_type"`
}
