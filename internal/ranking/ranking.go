// Package ranking scores opinions for the hot and trending listings.
package ranking

import (
	"context"
	"math"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RescoreWindow bounds which opinions the periodic rescore touches.
const RescoreWindow = 7 * 24 * time.Hour

// Scores are derived from engagement and age.
type Scores struct {
	Hot   float64
	Trend float64
}

func Compute(reactions, comments, votes int, createdAt, now time.Time) Scores {
	base := float64(2*reactions + 3*comments + votes)
	ageHours := now.Sub(createdAt).Hours()
	return Scores{
		Hot:   math.Log1p(math.Max(0, base)) - ageHours/48,
		Trend: base / (1 + ageHours/6),
	}
}

func ForOpinion(op *models.Opinion, now time.Time) Scores {
	return Compute(op.ReactionCount, op.CommentCount, op.VoteCount, op.CreatedAt, now)
}

// Store is the part of the opinion repository the rescorer needs.
type Store interface {
	RecentOpinions(ctx context.Context, since time.Time) ([]models.Opinion, error)
	SetScores(ctx context.Context, id primitive.ObjectID, hot, trend float64) error
}

// Apply recomputes and persists the scores of one opinion.
func Apply(ctx context.Context, store Store, op *models.Opinion, now time.Time) error {
	s := ForOpinion(op, now)
	op.ScoreHot, op.ScoreTrend = s.Hot, s.Trend
	return store.SetScores(ctx, op.ID, s.Hot, s.Trend)
}

// Rescore refreshes every opinion inside RescoreWindow and returns how many
// were updated.
func Rescore(ctx context.Context, store Store, now time.Time) (int, error) {
	ops, err := store.RecentOpinions(ctx, now.Add(-RescoreWindow))
	if err != nil {
		return 0, err
	}
	for i := range ops {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := Apply(ctx, store, &ops[i], now); err != nil {
			return i, err
		}
	}
	return len(ops), nil
}
