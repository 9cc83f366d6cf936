package models

import "time"

const (
	SavedKindPosts  = "POSTS"
	SavedKindPeople = "PEOPLE"

	DefaultPostsListName  = "Favorites (Posts)"
	DefaultPeopleListName = "Favorites (People)"
)

// SavedList is a user-curated collection of posts or profiles
type SavedList struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Name      string    `json:"name" gorm:"size:60"`
	Kind      string    `json:"kind" gorm:"size:10;index"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedItem holds exactly one of PostID or ProfileID.
type SavedItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ListID    uint      `json:"list_id" gorm:"index;uniqueIndex:idx_saved_list_post;uniqueIndex:idx_saved_list_profile"`
	PostID    *string   `json:"post_id,omitempty" gorm:"size:24;uniqueIndex:idx_saved_list_post"`
	ProfileID *uint     `json:"profile_id,omitempty" gorm:"uniqueIndex:idx_saved_list_profile"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateSavedListRequest struct {
	Name string `json:"name" validate:"required,notblank,max=60"`
	Kind string `json:"kind" validate:"required,oneof=POSTS PEOPLE"`
}

type RenameSavedListRequest struct {
	Name string `json:"name" validate:"required,notblank,max=60"`
}

// SaveTarget names either a post or a profile.
type SaveTarget struct {
	PostID    string `json:"post_id" query:"post_id" validate:"omitempty,len=24"`
	ProfileID uint   `json:"profile_id" query:"profile_id"`
}

type AddToListsRequest struct {
	ListIDs []uint `json:"list_ids" validate:"required,min=1,max=50"`
	SaveTarget
}

type ListItemRequest struct {
	ListID uint `json:"list_id" validate:"required"`
	SaveTarget
}
