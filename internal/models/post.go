package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a media post stored in MongoDB
type Post struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorProfileID uint               `json:"author_profile_id" bson:"author_profile_id"`
	Caption         string             `json:"caption" bson:"caption"`
	Tags            []string           `json:"tags" bson:"tags"`
	Assets          []PostAsset        `json:"assets" bson:"assets"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
}

// PostAsset is one ordered media attachment. Opinions reuse it.
type PostAsset struct {
	URL     string `json:"url" bson:"url"`
	AltText string `json:"alt_text,omitempty" bson:"alt_text,omitempty"`
	Order   int    `json:"order" bson:"order"`
}

type PostAssetInput struct {
	URL     string `json:"url" validate:"required,url"`
	AltText string `json:"alt_text" validate:"max=300"`
	Order   *int   `json:"order" validate:"omitempty,min=0"`
}

type CreatePostRequest struct {
	Caption string           `json:"caption" validate:"max=1000"`
	Tags    []string         `json:"tags" validate:"max=10,dive,required,notblank,max=50"`
	Files   []PostAssetInput `json:"files" validate:"required,min=1,max=10,dive"`
}

// Like is a user's like on a post (PostgreSQL)
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"size:24;uniqueIndex:idx_like_post_user"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_like_post_user;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Comment on a post (PostgreSQL)
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"size:24;index"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Text      string    `json:"text" gorm:"size:1000"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=1000"`
}

// Follow is a profile-to-profile edge
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`  // profile id
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"` // profile id
	CreatedAt   time.Time `json:"created_at"`
}
