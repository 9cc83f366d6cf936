package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/bizgram/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedListSummary is a list with its item count.
type SavedListSummary struct {
	models.SavedList
	Count int64 `json:"count"`
}

// SavedRepository defines the interface for saved lists and their items
type SavedRepository interface {
	ListLists(ctx context.Context, userID uint, kind string) ([]SavedListSummary, error)
	GetList(ctx context.Context, id uint) (*models.SavedList, error)
	GetLists(ctx context.Context, ids []uint) ([]models.SavedList, error)
	CreateList(ctx context.Context, list *models.SavedList) error
	RenameList(ctx context.Context, id uint, name string) error
	DeleteList(ctx context.Context, id uint) error
	DefaultList(ctx context.Context, userID uint, kind string) (*models.SavedList, error)
	Items(ctx context.Context, listID uint) ([]models.SavedItem, error)
	ContainingLists(ctx context.Context, userID uint, kind string, target models.SaveTarget) ([]uint, error)
	AddItems(ctx context.Context, listIDs []uint, target models.SaveTarget) (int64, error)
	RemoveItem(ctx context.Context, listID uint, target models.SaveTarget) (int64, error)
	HasItem(ctx context.Context, listID uint, target models.SaveTarget) (bool, error)
}

// PostgresSavedRepository implements SavedRepository for PostgreSQL
type PostgresSavedRepository struct {
	db *gorm.DB
}

// NewPostgresSavedRepository creates a new PostgresSavedRepository
func NewPostgresSavedRepository(db *gorm.DB) *PostgresSavedRepository {
	return &PostgresSavedRepository{db: db}
}

// ListLists returns the user's lists newest first. An empty kind lists all.
func (r *PostgresSavedRepository) ListLists(ctx context.Context, userID uint, kind string) ([]SavedListSummary, error) {
	db := r.db.WithContext(ctx).Model(&models.SavedList{}).
		Select("saved_lists.*, (SELECT COUNT(*) FROM saved_items WHERE saved_items.list_id = saved_lists.id) AS count").
		Where("user_id = ?", userID)
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	out := []SavedListSummary{}
	err := db.Order("created_at DESC").Scan(&out).Error
	return out, err
}

func (r *PostgresSavedRepository) GetList(ctx context.Context, id uint) (*models.SavedList, error) {
	var l models.SavedList
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, wrapNotFound("saved list", err)
	}
	return &l, nil
}

func (r *PostgresSavedRepository) GetLists(ctx context.Context, ids []uint) ([]models.SavedList, error) {
	var lists []models.SavedList
	if len(ids) == 0 {
		return lists, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&lists).Error
	return lists, err
}

func (r *PostgresSavedRepository) CreateList(ctx context.Context, list *models.SavedList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *PostgresSavedRepository) RenameList(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).Model(&models.SavedList{}).Where("id = ?", id).Update("name", name).Error
}

// DeleteList removes the list and its items.
func (r *PostgresSavedRepository) DeleteList(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", id).Delete(&models.SavedItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SavedList{}, id).Error
	})
}

// DefaultList returns the user's favorites list of kind, creating it on demand.
func (r *PostgresSavedRepository) DefaultList(ctx context.Context, userID uint, kind string) (*models.SavedList, error) {
	name := models.DefaultPostsListName
	if kind == models.SavedKindPeople {
		name = models.DefaultPeopleListName
	}
	var l models.SavedList
	err := r.db.WithContext(ctx).
		Where(models.SavedList{UserID: userID, Kind: kind, Name: name}).
		FirstOrCreate(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresSavedRepository) Items(ctx context.Context, listID uint) ([]models.SavedItem, error) {
	items := []models.SavedItem{}
	err := r.db.WithContext(ctx).Where("list_id = ?", listID).Order("created_at DESC").Order("id DESC").Find(&items).Error
	return items, err
}

func targetWhere(db *gorm.DB, t models.SaveTarget) *gorm.DB {
	if t.PostID != "" {
		return db.Where("saved_items.post_id = ?", t.PostID)
	}
	return db.Where("saved_items.profile_id = ?", t.ProfileID)
}

// ContainingLists returns ids of the user's lists of kind holding target.
func (r *PostgresSavedRepository) ContainingLists(ctx context.Context, userID uint, kind string, target models.SaveTarget) ([]uint, error) {
	db := r.db.WithContext(ctx).Model(&models.SavedItem{}).
		Joins("JOIN saved_lists ON saved_lists.id = saved_items.list_id").
		Where("saved_lists.user_id = ? AND saved_lists.kind = ?", userID, kind)
	ids := []uint{}
	err := targetWhere(db, target).Distinct().Pluck("saved_items.list_id", &ids).Error
	return ids, err
}

func newItem(listID uint, t models.SaveTarget) models.SavedItem {
	item := models.SavedItem{ListID: listID}
	if t.PostID != "" {
		pid := t.PostID
		item.PostID = &pid
	} else {
		prof := t.ProfileID
		item.ProfileID = &prof
	}
	return item
}

// AddItems saves target into every list, skipping lists that already hold it.
// It returns how many rows were created.
func (r *PostgresSavedRepository) AddItems(ctx context.Context, listIDs []uint, target models.SaveTarget) (int64, error) {
	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range listIDs {
			item := newItem(id, target)
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item)
			if res.Error != nil {
				return res.Error
			}
			created += res.RowsAffected
		}
		return nil
	})
	return created, err
}

func (r *PostgresSavedRepository) RemoveItem(ctx context.Context, listID uint, target models.SaveTarget) (int64, error) {
	db := r.db.WithContext(ctx).Where("list_id = ?", listID)
	res := targetWhere(db, target).Delete(&models.SavedItem{})
	return res.RowsAffected, res.Error
}

func (r *PostgresSavedRepository) HasItem(ctx context.Context, listID uint, target models.SaveTarget) (bool, error) {
	var item models.SavedItem
	err := targetWhere(r.db.WithContext(ctx).Where("list_id = ?", listID), target).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
