package repositories

import (
	"context"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
)

// ProjectRepository defines the interface for projects, their crew and call sheets
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	GetProjectWithMembers(ctx context.Context, id uint) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Project, error)
	GetProjectsByIDs(ctx context.Context, ids []uint) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uint) error

	AddMembers(ctx context.Context, members []models.ProjectMember) error
	GetMember(ctx context.Context, projectID, memberID uint) (*models.ProjectMember, error)
	UpdateMember(ctx context.Context, m *models.ProjectMember) error
	MemberProfileIDs(ctx context.Context, projectID uint) ([]uint, error)
	IsMemberProfile(ctx context.Context, projectID, profileID uint) (bool, error)

	ListCallsheets(ctx context.Context, projectID uint) ([]models.Callsheet, error)
	CreateCallsheet(ctx context.Context, cs *models.Callsheet) error
	GetCallsheet(ctx context.Context, id uint) (*models.Callsheet, error)
	PublishCallsheet(ctx context.Context, id uint, at time.Time) error
}

// PostgresProjectRepository implements ProjectRepository for PostgreSQL
type PostgresProjectRepository struct {
	db *gorm.DB
}

// NewPostgresProjectRepository creates a new PostgresProjectRepository
func NewPostgresProjectRepository(db *gorm.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

func (r *PostgresProjectRepository) CreateProject(ctx context.Context, p *models.Project) error {
	return r.db.WithContext(ctx).Omit("Members").Create(p).Error
}

func (r *PostgresProjectRepository) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapNotFound("project", err)
	}
	return &p, nil
}

// GetProjectWithMembers loads members in insertion order.
func (r *PostgresProjectRepository) GetProjectWithMembers(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		First(&p, id).Error
	if err != nil {
		return nil, wrapNotFound("project", err)
	}
	return &p, nil
}

func (r *PostgresProjectRepository) ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Project, error) {
	projects := []models.Project{}
	err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").Order("id DESC").Find(&projects).Error
	return projects, err
}

func (r *PostgresProjectRepository) GetProjectsByIDs(ctx context.Context, ids []uint) ([]models.Project, error) {
	projects := []models.Project{}
	if len(ids) == 0 {
		return projects, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&projects).Error
	return projects, err
}

func (r *PostgresProjectRepository) UpdateProject(ctx context.Context, p *models.Project) error {
	return r.db.WithContext(ctx).Omit("Members").Save(p).Error
}

// DeleteProject removes members, call sheets and dashboard links, then the project.
func (r *PostgresProjectRepository) DeleteProject(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Callsheet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.DashboardProject{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
}

func (r *PostgresProjectRepository) AddMembers(ctx context.Context, members []models.ProjectMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

func (r *PostgresProjectRepository) GetMember(ctx context.Context, projectID, memberID uint) (*models.ProjectMember, error) {
	var m models.ProjectMember
	if err := r.db.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, memberID).First(&m).Error; err != nil {
		return nil, wrapNotFound("member", err)
	}
	return &m, nil
}

func (r *PostgresProjectRepository) UpdateMember(ctx context.Context, m *models.ProjectMember) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *PostgresProjectRepository) MemberProfileIDs(ctx context.Context, projectID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND profile_id IS NOT NULL", projectID).
		Pluck("profile_id", &ids).Error
	return ids, err
}

func (r *PostgresProjectRepository) IsMemberProfile(ctx context.Context, projectID, profileID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND profile_id = ?", projectID, profileID).Count(&count).Error
	return count > 0, err
}

// ListCallsheets orders by day with undated sheets last, then creation time.
func (r *PostgresProjectRepository) ListCallsheets(ctx context.Context, projectID uint) ([]models.Callsheet, error) {
	sheets := []models.Callsheet{}
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("day ASC NULLS LAST").Order("created_at ASC").Find(&sheets).Error
	return sheets, err
}

func (r *PostgresProjectRepository) CreateCallsheet(ctx context.Context, cs *models.Callsheet) error {
	return r.db.WithContext(ctx).Create(cs).Error
}

func (r *PostgresProjectRepository) GetCallsheet(ctx context.Context, id uint) (*models.Callsheet, error) {
	var cs models.Callsheet
	if err := r.db.WithContext(ctx).First(&cs, id).Error; err != nil {
		return nil, wrapNotFound("callsheet", err)
	}
	return &cs, nil
}

func (r *PostgresProjectRepository) PublishCallsheet(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Callsheet{}).Where("id = ?", id).Update("published_at", at).Error
}
