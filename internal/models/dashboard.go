package models

import "time"

// Dashboard groups projects for a team
type Dashboard struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Slug            string    `json:"slug" gorm:"size:80;uniqueIndex"`
	Name            string    `json:"name" gorm:"size:120"`
	CoverURL        string    `json:"cover_url,omitempty"`
	CreatedByUserID uint      `json:"created_by_user_id" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type DashboardMember struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DashboardID uint      `json:"dashboard_id" gorm:"uniqueIndex:idx_dashboard_member"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_dashboard_member;index"`
	Role        string    `json:"role" gorm:"size:20"`
	CreatedAt   time.Time `json:"created_at"`
}

type DashboardProject struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DashboardID uint      `json:"dashboard_id" gorm:"uniqueIndex:idx_dashboard_project"`
	ProjectID   uint      `json:"project_id" gorm:"uniqueIndex:idx_dashboard_project"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateDashboardRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=120"`
	CoverURL string `json:"cover_url" validate:"omitempty,url"`
}

type UpdateCoverRequest struct {
	CoverURL string `json:"cover_url" validate:"required,url"`
}

type LinkCallsheetRequest struct {
	ProjectID uint `json:"project_id" validate:"required"`
}
