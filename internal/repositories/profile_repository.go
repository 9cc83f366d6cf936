package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"gorm.io/gorm"
)

// ProfileSearch filters profile search and the directory. Empty fields are ignored.
type ProfileSearch struct {
	Q           string
	Profession  string
	City        string
	Region      string
	AccountType string
	// Directory matches q against bio too and sorts by display name when AZ.
	Directory bool
	AZ        bool
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	GetByHandle(ctx context.Context, handle string) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Profile, error)
	GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]models.Profile, error)
	GetByHandles(ctx context.Context, handles []string) ([]models.Profile, error)
	HandleOwner(ctx context.Context, handle string) (uint, bool, error)
	MatchingIDs(ctx context.Context, q string, f ProfileSearch) ([]uint, error)
	Search(ctx context.Context, f ProfileSearch, cursor *pagination.Cursor, limit int) ([]models.Profile, error)
	Recipients(ctx context.Context, q string, excludeUserID uint, limit int) ([]models.Profile, error)
}

// PostgresProfileRepository implements ProfileRepository for PostgreSQL
type PostgresProfileRepository struct {
	db *gorm.DB
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository
func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *PostgresProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapNotFound("profile", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, wrapNotFound("profile", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("handle = ?", strings.ToLower(handle)).First(&p).Error; err != nil {
		return nil, wrapNotFound("profile", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Profile, error) {
	out := make(map[uint]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *PostgresProfileRepository) GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]models.Profile, error) {
	out := make(map[uint]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.UserID] = p
	}
	return out, nil
}

func (r *PostgresProfileRepository) GetByHandles(ctx context.Context, handles []string) ([]models.Profile, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	var rows []models.Profile
	err := r.db.WithContext(ctx).Where("handle IN ?", handles).Find(&rows).Error
	return rows, err
}

// HandleOwner reports which user holds handle, if anyone.
func (r *PostgresProfileRepository) HandleOwner(ctx context.Context, handle string) (uint, bool, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Select("user_id").Where("handle = ?", handle).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return p.UserID, true, nil
}

func like(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// applyFacets adds the q and facet conditions shared by search and directory.
func applyFacets(db *gorm.DB, f ProfileSearch) *gorm.DB {
	if q := strings.TrimSpace(f.Q); q != "" {
		l := like(q)
		if f.Directory {
			db = db.Where("LOWER(display_name) LIKE ? OR LOWER(handle) LIKE ? OR LOWER(bio) LIKE ? OR LOWER(profession) LIKE ? OR ? = ANY(professions)",
				l, l, l, l, q)
		} else {
			db = db.Where("LOWER(display_name) LIKE ? OR LOWER(handle) LIKE ? OR LOWER(city) LIKE ? OR LOWER(region) LIKE ? OR ? = ANY(professions)",
				l, l, l, l, q)
		}
	}
	if p := strings.TrimSpace(f.Profession); p != "" {
		if f.Directory {
			db = db.Where("LOWER(profession) LIKE ? OR ? = ANY(professions)", like(p), p)
		} else {
			db = db.Where("LOWER(profession) LIKE ?", like(p))
		}
	}
	if f.City != "" {
		db = db.Where("LOWER(city) LIKE ?", like(f.City))
	}
	if f.Region != "" {
		db = db.Where("LOWER(region) LIKE ?", like(f.Region))
	}
	if f.AccountType != "" {
		db = db.Where("account_type = ?", f.AccountType)
	}
	return db
}

// MatchingIDs returns ids of profiles whose handle, display name, profession,
// city or region contains q, further narrowed by the facets in f.
func (r *PostgresProfileRepository) MatchingIDs(ctx context.Context, q string, f ProfileSearch) ([]uint, error) {
	db := r.db.WithContext(ctx).Model(&models.Profile{})
	if q = strings.TrimSpace(q); q != "" {
		l := like(q)
		db = db.Where("LOWER(handle) LIKE ? OR LOWER(display_name) LIKE ? OR LOWER(profession) LIKE ? OR LOWER(city) LIKE ? OR LOWER(region) LIKE ?",
			l, l, l, l, l)
	}
	f.Q = ""
	db = applyFacets(db, f)
	var ids []uint
	err := db.Limit(MaxMatchingProfiles).Pluck("id", &ids).Error
	return ids, err
}

// Search lists profiles. Ordered by updated_at (search), created_at
// (directory relevance) or display name (directory a_z).
func (r *PostgresProfileRepository) Search(ctx context.Context, f ProfileSearch, cursor *pagination.Cursor, limit int) ([]models.Profile, error) {
	db := applyFacets(r.db.WithContext(ctx).Model(&models.Profile{}), f)

	var err error
	switch {
	case f.AZ:
		// a_z pages by offset carried in the cursor id
		if cursor != nil {
			off, perr := cursor.Offset()
			if perr != nil {
				return nil, perr
			}
			db = db.Offset(off)
		}
		db = db.Order("display_name ASC").Order("id ASC")
	case f.Directory:
		if db, err = pagination.KeysetDesc(db, "created_at", cursor); err != nil {
			return nil, err
		}
		db = db.Order("created_at DESC").Order("id DESC")
	default:
		if db, err = pagination.KeysetDesc(db, "updated_at", cursor); err != nil {
			return nil, err
		}
		db = db.Order("updated_at DESC").Order("id DESC")
	}

	var rows []models.Profile
	err = db.Limit(limit + 1).Find(&rows).Error
	return rows, err
}

// Recipients lists DM candidates other than the caller.
func (r *PostgresProfileRepository) Recipients(ctx context.Context, q string, excludeUserID uint, limit int) ([]models.Profile, error) {
	db := r.db.WithContext(ctx).Where("user_id <> ?", excludeUserID)
	if q = strings.TrimSpace(q); q != "" {
		l := like(q)
		db = db.Where("LOWER(handle) LIKE ? OR LOWER(display_name) LIKE ?", l, l)
	}
	var rows []models.Profile
	err := db.Order("display_name ASC").Limit(limit).Find(&rows).Error
	return rows, err
}
