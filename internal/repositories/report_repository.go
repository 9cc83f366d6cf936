package repositories

import (
	"context"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
)

// ReportRepository stores moderation reports
type ReportRepository interface {
	CreateReport(ctx context.Context, r *models.Report) error
}

// PostgresReportRepository implements ReportRepository for PostgreSQL
type PostgresReportRepository struct {
	db *gorm.DB
}

func NewPostgresReportRepository(db *gorm.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

func (r *PostgresReportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}
