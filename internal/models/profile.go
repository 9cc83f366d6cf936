package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	AccountPersonal = "PERSONAL"
	AccountCompany  = "COMPANY"
)

// Profile is the public identity of a user. One per user.
type Profile struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	UserID            uint           `json:"user_id" gorm:"uniqueIndex"`
	Handle            string         `json:"handle" gorm:"size:40;uniqueIndex"`
	DisplayName       string         `json:"display_name"`
	Profession        string         `json:"profession"`
	Professions       pq.StringArray `json:"professions" gorm:"type:text[]"`
	AccountType       string         `json:"account_type" gorm:"size:20;default:'PERSONAL'"`
	PortfolioURL      string         `json:"portfolio_url,omitempty"`
	Bio               string         `json:"bio,omitempty" gorm:"size:280"`
	City              string         `json:"city,omitempty"`
	Region            string         `json:"region,omitempty"`
	ServicesEnabled   bool           `json:"services_enabled"`
	AcceptsBriefs     bool           `json:"accepts_briefs"`
	AcceptsDMs        bool           `json:"accepts_dms"`
	ShowCityPublicly  bool           `json:"show_city_publicly"`
	ShowRatesPublicly bool           `json:"show_rates_publicly"`
	CurrentWorkCity   string         `json:"current_work_city,omitempty"`
	CurrentWorkUntil  *time.Time     `json:"current_work_until,omitempty"`
	VerificationLevel int            `json:"verification_level"`
	AvatarURL         string         `json:"avatar_url,omitempty"`
	CreatedAt         time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"index"`
}

// ProfileCompact is the author/participant shape embedded in other responses.
type ProfileCompact struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Profession  string `json:"profession,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (p *Profile) ToCompact() ProfileCompact {
	return ProfileCompact{
		ID:          p.ID,
		UserID:      p.UserID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		Profession:  p.Profession,
		AvatarURL:   p.AvatarURL,
	}
}

// Name is what notifications call this profile.
func (p *Profile) Name() string {
	if p == nil {
		return "Someone"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Handle != "" {
		return "@" + p.Handle
	}
	return "Someone"
}

type UpdateProfileRequest struct {
	DisplayName       string     `json:"display_name" validate:"required,notblank,max=60"`
	Handle            string     `json:"handle" validate:"required,min=3,max=40"`
	Professions       []string   `json:"professions" validate:"max=10,dive,required,notblank,max=80"`
	Bio               string     `json:"bio" validate:"max=280"`
	City              string     `json:"city" validate:"max=120"`
	Region            string     `json:"region" validate:"max=120"`
	ServicesEnabled   *bool      `json:"services_enabled"`
	AcceptsBriefs     *bool      `json:"accepts_briefs"`
	AcceptsDMs        *bool      `json:"accepts_dms"`
	ShowCityPublicly  *bool      `json:"show_city_publicly"`
	ShowRatesPublicly *bool      `json:"show_rates_publicly"`
	CurrentWorkCity   string     `json:"current_work_city" validate:"max=120"`
	CurrentWorkUntil  *time.Time `json:"current_work_until"`
	AccountType       string     `json:"account_type" validate:"required,oneof=PERSONAL COMPANY"`
	PortfolioURL      string     `json:"portfolio_url" validate:"omitempty,url"`
}

type OnboardingRequest struct {
	DisplayName string `json:"display_name" validate:"required,notblank,min=2,max=60"`
	Handle      string `json:"handle" validate:"required,min=2,max=40"`
	AccountType string `json:"account_type" validate:"omitempty,oneof=PERSONAL COMPANY"`
}
