package ranking

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompute(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	fresh := Compute(0, 0, 0, now, now)
	assert.Equal(t, 0.0, fresh.Hot)
	assert.Equal(t, 0.0, fresh.Trend)

	s := Compute(2, 1, 3, now.Add(-6*time.Hour), now)
	// base = 4 + 3 + 3
	assert.InDelta(t, math.Log1p(10)-6.0/48, s.Hot, 1e-9)
	assert.InDelta(t, 10.0/2, s.Trend, 1e-9)
}

func TestComputeDecays(t *testing.T) {
	now := time.Now()
	young := Compute(5, 5, 5, now.Add(-time.Hour), now)
	old := Compute(5, 5, 5, now.Add(-72*time.Hour), now)
	assert.Greater(t, young.Hot, old.Hot)
	assert.Greater(t, young.Trend, old.Trend)
}

type fakeStore struct {
	since  time.Time
	ops    []models.Opinion
	scores map[primitive.ObjectID]Scores
}

func (f *fakeStore) RecentOpinions(_ context.Context, since time.Time) ([]models.Opinion, error) {
	f.since = since
	return f.ops, nil
}

func (f *fakeStore) SetScores(_ context.Context, id primitive.ObjectID, hot, trend float64) error {
	f.scores[id] = Scores{Hot: hot, Trend: trend}
	return nil
}

func TestRescore(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	store := &fakeStore{
		ops: []models.Opinion{
			{ID: a, ReactionCount: 1, CreatedAt: now.Add(-time.Hour)},
			{ID: b, CommentCount: 2, CreatedAt: now.Add(-48 * time.Hour)},
		},
		scores: map[primitive.ObjectID]Scores{},
	}

	n, err := Rescore(context.Background(), store, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(-RescoreWindow), store.since)
	assert.Equal(t, Compute(1, 0, 0, now.Add(-time.Hour), now), store.scores[a])
	assert.Equal(t, Compute(0, 2, 0, now.Add(-48*time.Hour), now), store.scores[b])
}
