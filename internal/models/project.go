package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Project is a production. Details carries the call sheet document.
type Project struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OwnerUserID uint            `json:"owner_user_id" gorm:"index"`
	Name        string          `json:"name" gorm:"size:120"`
	ShootDate   *time.Time      `json:"shoot_date"`
	CrewCall    *time.Time      `json:"crew_call"`
	ShootCall   *time.Time      `json:"shoot_call"`
	Details     datatypes.JSON  `json:"details"`
	Members     []ProjectMember `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProjectMember is either an app profile or an external crew entry.
type ProjectMember struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	ProjectID    uint            `json:"project_id" gorm:"index"`
	ProfileID    *uint           `json:"profile_id,omitempty" gorm:"index"`
	ExternalName string          `json:"external_name,omitempty"`
	Role         string          `json:"role,omitempty"`
	Department   string          `json:"department,omitempty" gorm:"size:40"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	CallTime     *time.Time      `json:"call_time,omitempty"`
	Profile      *ProfileCompact `json:"profile,omitempty" gorm:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DisplayName prefers the external name, then the linked profile.
func (m *ProjectMember) DisplayName() string {
	if m.ExternalName != "" {
		return m.ExternalName
	}
	if m.Profile != nil {
		if m.Profile.DisplayName != "" {
			return m.Profile.DisplayName
		}
		return "@" + m.Profile.Handle
	}
	return ""
}

type Callsheet struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ProjectID   uint       `json:"project_id" gorm:"index"`
	Day         *int       `json:"day"`
	Title       *string    `json:"title"`
	Date        *time.Time `json:"date"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,notblank,max=120"`
}

type UpdateProjectMetaRequest struct {
	Name      string          `json:"name" validate:"required,notblank,max=120"`
	ShootDate *time.Time      `json:"shoot_date"`
	CrewCall  *time.Time      `json:"crew_call"`
	ShootCall *time.Time      `json:"shoot_call"`
	Details   json.RawMessage `json:"details"`
}

type AddMembersRequest struct {
	ProfileIDs []uint `json:"profile_ids" validate:"required,min=1,max=200"`
}

type AddManualMemberRequest struct {
	Name       string `json:"name" validate:"required,notblank,max=120"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=40"`
	Role       string `json:"role" validate:"max=80"`
	Department string `json:"department" validate:"max=40"`
}

type MemberPatch struct {
	Role       *string    `json:"role" validate:"omitempty,max=80"`
	Department *string    `json:"department" validate:"omitempty,max=40"`
	Email      *string    `json:"email" validate:"omitempty,email"`
	Phone      *string    `json:"phone" validate:"omitempty,max=40"`
	CallTime   *time.Time `json:"call_time"`
}

type UpdateMemberRequest struct {
	MemberID uint        `json:"member_id" validate:"required"`
	Patch    MemberPatch `json:"patch"`
}

type SetCoverRequest struct {
	CoverURL string `json:"cover_url" validate:"required,url"`
}

type CreateCallsheetRequest struct {
	Day   *int   `json:"day" validate:"omitempty,gt=0"`
	Title string `json:"title" validate:"max=120"`
	Date  string `json:"date"`
}
