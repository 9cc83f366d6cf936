package models

import "time"

const (
	BriefOpen   = "open"
	BriefClosed = "closed"

	ProposalSubmitted = "submitted"
	ProposalAccepted  = "accepted"
	ProposalDeclined  = "declined"
)

// Brief is a client job posting sent to invited creators
type Brief struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OwnerUserID uint      `json:"owner_user_id" gorm:"index"`
	Title       string    `json:"title" gorm:"size:120"`
	Description string    `json:"description"`
	BudgetMin   *int      `json:"budget_min,omitempty"`
	BudgetMax   *int      `json:"budget_max,omitempty"`
	Currency    string    `json:"currency" gorm:"size:3"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	Status      string    `json:"status" gorm:"type:varchar(20);default:'open'"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BriefTarget is an invitation of one profile to a brief.
type BriefTarget struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BriefID   uint      `json:"brief_id" gorm:"uniqueIndex:idx_brief_target"`
	ProfileID uint      `json:"profile_id" gorm:"uniqueIndex:idx_brief_target;index"`
	CreatedAt time.Time `json:"created_at"`
}

type Proposal struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BriefID   uint      `json:"brief_id" gorm:"index"`
	ProfileID uint      `json:"profile_id" gorm:"index"`
	Message   string    `json:"message"`
	Price     *int      `json:"price,omitempty"`
	Status    string    `json:"status" gorm:"type:varchar(20);default:'submitted'"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateBriefRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"required,notblank,max=2000"`
	BudgetMin   *int   `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax   *int   `json:"budget_max" validate:"omitempty,min=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	City        string `json:"city" validate:"max=120"`
	Region      string `json:"region" validate:"max=120"`
}

type InviteByHandleRequest struct {
	Handle string `json:"handle" validate:"required,min=2,max=40"`
}

type SubmitProposalRequest struct {
	Message string `json:"message" validate:"required,notblank,max=2000"`
	Price   *int   `json:"price" validate:"omitempty,min=0"`
}

type UpdateProposalStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=submitted accepted declined"`
}
