package repositories

import (
	"context"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DashboardRepository defines the interface for dashboards
type DashboardRepository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateDashboard(ctx context.Context, d *models.Dashboard, ownerUserID uint) error
	GetDashboard(ctx context.Context, id uint) (*models.Dashboard, error)
	ListForMember(ctx context.Context, userID uint) ([]models.Dashboard, error)
	IsMember(ctx context.Context, dashboardID, userID uint) (bool, error)
	UpdateCover(ctx context.Context, id uint, coverURL string) error
	LinkProject(ctx context.Context, dashboardID, projectID uint) error
	LinkedProjectIDs(ctx context.Context, dashboardID uint) ([]uint, error)
}

// PostgresDashboardRepository implements DashboardRepository for PostgreSQL
type PostgresDashboardRepository struct {
	db *gorm.DB
}

// NewPostgresDashboardRepository creates a new PostgresDashboardRepository
func NewPostgresDashboardRepository(db *gorm.DB) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{db: db}
}

func (r *PostgresDashboardRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Dashboard{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// CreateDashboard stores d and makes ownerUserID its OWNER member.
func (r *PostgresDashboardRepository) CreateDashboard(ctx context.Context, d *models.Dashboard, ownerUserID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		return tx.Create(&models.DashboardMember{DashboardID: d.ID, UserID: ownerUserID, Role: "OWNER"}).Error
	})
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PostgresDashboardRepository) GetDashboard(ctx context.Context, id uint) (*models.Dashboard, error) {
	var d models.Dashboard
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, wrapNotFound("dashboard", err)
	}
	return &d, nil
}

func (r *PostgresDashboardRepository) ListForMember(ctx context.Context, userID uint) ([]models.Dashboard, error) {
	out := []models.Dashboard{}
	err := r.db.WithContext(ctx).
		Joins("JOIN dashboard_members ON dashboard_members.dashboard_id = dashboards.id").
		Where("dashboard_members.user_id = ?", userID).
		Order("dashboards.created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *PostgresDashboardRepository) IsMember(ctx context.Context, dashboardID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DashboardMember{}).
		Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresDashboardRepository) UpdateCover(ctx context.Context, id uint, coverURL string) error {
	return r.db.WithContext(ctx).Model(&models.Dashboard{}).Where("id = ?", id).Update("cover_url", coverURL).Error
}

// LinkProject is idempotent.
func (r *PostgresDashboardRepository) LinkProject(ctx context.Context, dashboardID, projectID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DashboardProject{DashboardID: dashboardID, ProjectID: projectID}).Error
}

// LinkedProjectIDs returns project ids, newest link first.
func (r *PostgresDashboardRepository) LinkedProjectIDs(ctx context.Context, dashboardID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.DashboardProject{}).
		Where("dashboard_id = ?", dashboardID).
		Order("created_at DESC").
		Pluck("project_id", &ids).Error
	return ids, err
}
