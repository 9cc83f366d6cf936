package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BriefSummary is an owner's brief with its proposal count.
type BriefSummary struct {
	models.Brief
	ProposalCount int64 `json:"proposal_count"`
}

// BriefRepository defines the interface for briefs, invitations and proposals
type BriefRepository interface {
	CreateBrief(ctx context.Context, b *models.Brief) error
	GetBrief(ctx context.Context, id uint) (*models.Brief, error)
	ListByOwner(ctx context.Context, ownerUserID uint) ([]BriefSummary, error)
	Invite(ctx context.Context, briefID, profileID uint) error
	IsInvited(ctx context.Context, briefID, profileID uint) (bool, error)
	Targets(ctx context.Context, briefID uint) ([]models.BriefTarget, error)
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id uint) (*models.Proposal, error)
	ListProposals(ctx context.Context, briefID uint) ([]models.Proposal, error)
	SetProposalStatus(ctx context.Context, p *models.Proposal, status string) error
}

// PostgresBriefRepository implements BriefRepository for PostgreSQL
type PostgresBriefRepository struct {
	db *gorm.DB
}

// NewPostgresBriefRepository creates a new PostgresBriefRepository
func NewPostgresBriefRepository(db *gorm.DB) *PostgresBriefRepository {
	return &PostgresBriefRepository{db: db}
}

func (r *PostgresBriefRepository) CreateBrief(ctx context.Context, b *models.Brief) error {
	b.Status = models.BriefOpen
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *PostgresBriefRepository) GetBrief(ctx context.Context, id uint) (*models.Brief, error) {
	var b models.Brief
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, wrapNotFound("brief", err)
	}
	return &b, nil
}

func (r *PostgresBriefRepository) ListByOwner(ctx context.Context, ownerUserID uint) ([]BriefSummary, error) {
	out := []BriefSummary{}
	err := r.db.WithContext(ctx).Model(&models.Brief{}).
		Select("briefs.*, (SELECT COUNT(*) FROM proposals WHERE proposals.brief_id = briefs.id) AS proposal_count").
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Scan(&out).Error
	return out, err
}

// Invite is idempotent.
func (r *PostgresBriefRepository) Invite(ctx context.Context, briefID, profileID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BriefTarget{BriefID: briefID, ProfileID: profileID}).Error
}

func (r *PostgresBriefRepository) IsInvited(ctx context.Context, briefID, profileID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BriefTarget{}).
		Where("brief_id = ? AND profile_id = ?", briefID, profileID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresBriefRepository) Targets(ctx context.Context, briefID uint) ([]models.BriefTarget, error) {
	targets := []models.BriefTarget{}
	err := r.db.WithContext(ctx).Where("brief_id = ?", briefID).Order("created_at ASC").Find(&targets).Error
	return targets, err
}

func (r *PostgresBriefRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	p.Status = models.ProposalSubmitted
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PostgresBriefRepository) GetProposal(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapNotFound("proposal", err)
	}
	return &p, nil
}

func (r *PostgresBriefRepository) ListProposals(ctx context.Context, briefID uint) ([]models.Proposal, error) {
	proposals := []models.Proposal{}
	err := r.db.WithContext(ctx).Where("brief_id = ?", briefID).Order("created_at DESC").Find(&proposals).Error
	return proposals, err
}

// SetProposalStatus updates the proposal. Accepting one closes its brief.
func (r *PostgresBriefRepository) SetProposalStatus(ctx context.Context, p *models.Proposal, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(p).Update("status", status).Error; err != nil {
			return err
		}
		if status != models.ProposalAccepted {
			return nil
		}
		res := tx.Model(&models.Brief{}).Where("id = ?", p.BriefID).Update("status", models.BriefClosed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("brief %d: %w", p.BriefID, ErrNotFound)
		}
		return nil
	})
}
