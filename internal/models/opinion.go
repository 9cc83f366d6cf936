package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OpinionText  = "TEXT"
	OpinionPhoto = "PHOTO"
	OpinionPoll  = "POLL"
)

// Opinion is an anonymous post stored in MongoDB. The author is kept for
// moderation and never serialized.
type Opinion struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorUserID  uint               `json:"-" bson:"author_user_id"`
	Kind          string             `json:"kind" bson:"kind"`
	Text          string             `json:"text,omitempty" bson:"text,omitempty"`
	Assets        []PostAsset        `json:"assets" bson:"assets"`
	PollOptions   []PollOption       `json:"poll_options,omitempty" bson:"poll_options,omitempty"`
	PollEndsAt    *time.Time         `json:"poll_ends_at,omitempty" bson:"poll_ends_at,omitempty"`
	ReactionCount int                `json:"reaction_count" bson:"reaction_count"`
	CommentCount  int                `json:"comment_count" bson:"comment_count"`
	VoteCount     int                `json:"vote_count" bson:"vote_count"`
	ScoreHot      float64            `json:"score_hot" bson:"score_hot"`
	ScoreTrend    float64            `json:"score_trend" bson:"score_trend"`
	Removed       bool               `json:"-" bson:"removed"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

type PollOption struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label" bson:"label"`
	Count int    `json:"count" bson:"count"`
}

// OpinionReaction tracks reactions to opinions (PostgreSQL)
type OpinionReaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OpinionID string    `json:"opinion_id" gorm:"size:24;uniqueIndex:idx_opinion_reaction"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_opinion_reaction"`
	Kind      string    `json:"kind" gorm:"size:20;uniqueIndex:idx_opinion_reaction"`
	CreatedAt time.Time `json:"created_at"`
}

// OpinionComment is shown without its author.
type OpinionComment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	OpinionID    string    `json:"opinion_id" gorm:"size:24;index"`
	AuthorUserID uint      `json:"-" gorm:"index"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

type OpinionVote struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OpinionID   string    `json:"opinion_id" gorm:"size:24;uniqueIndex:idx_opinion_vote"`
	VoterUserID uint      `json:"-" gorm:"uniqueIndex:idx_opinion_vote"`
	OptionID    string    `json:"option_id" gorm:"size:40"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateOpinionRequest struct {
	Kind        string           `json:"kind" validate:"required,oneof=TEXT PHOTO POLL"`
	Text        string           `json:"text" validate:"max=2000"`
	Assets      []PostAssetInput `json:"assets" validate:"max=10,dive"`
	PollOptions []string         `json:"poll_options" validate:"max=10,dive,required,notblank,max=120"`
	PollEndsAt  *time.Time       `json:"poll_ends_at"`
}

type CommentOpinionRequest struct {
	Text string `json:"text" validate:"required,notblank,max=1000"`
}

type VoteOpinionRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}
