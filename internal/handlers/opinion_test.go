package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeOpinions struct {
	repositories.OpinionRepository
	rows      map[string]*models.Opinion
	votes     map[string]bool
	reactions map[string]bool
	scored    int
}

func newFakeOpinions(ops ...models.Opinion) *fakeOpinions {
	f := &fakeOpinions{rows: map[string]*models.Opinion{}, votes: map[string]bool{}, reactions: map[string]bool{}}
	for i := range ops {
		op := ops[i]
		f.rows[op.ID.Hex()] = &op
	}
	return f
}

func (f *fakeOpinions) CreateOpinion(_ context.Context, op *models.Opinion) error {
	op.ID = primitive.NewObjectID()
	op.CreatedAt = time.Now()
	cp := *op
	f.rows[op.ID.Hex()] = &cp
	return nil
}

func (f *fakeOpinions) GetOpinion(_ context.Context, id string) (*models.Opinion, error) {
	if op, ok := f.rows[id]; ok {
		cp := *op
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOpinions) AddVote(_ context.Context, v *models.OpinionVote) error {
	key := fmt.Sprintf("%s/%d", v.OpinionID, v.VoterUserID)
	if f.votes[key] {
		return repositories.ErrConflict
	}
	f.votes[key] = true
	return nil
}

func (f *fakeOpinions) IncrementVote(_ context.Context, id, optionID string) (*models.Opinion, error) {
	op := f.rows[id]
	for i := range op.PollOptions {
		if op.PollOptions[i].ID == optionID {
			op.PollOptions[i].Count++
		}
	}
	op.VoteCount++
	cp := *op
	return &cp, nil
}

func (f *fakeOpinions) AddReaction(_ context.Context, r *models.OpinionReaction) (bool, error) {
	key := fmt.Sprintf("%s/%d", r.OpinionID, r.UserID)
	if f.reactions[key] {
		return false, nil
	}
	f.reactions[key] = true
	return true, nil
}

func (f *fakeOpinions) IncrementCounter(_ context.Context, id, _ string) (*models.Opinion, error) {
	op := f.rows[id]
	op.ReactionCount++
	cp := *op
	return &cp, nil
}

func (f *fakeOpinions) SetScores(_ context.Context, id primitive.ObjectID, hot, trend float64) error {
	f.scored++
	f.rows[id.Hex()].ScoreHot = hot
	f.rows[id.Hex()].ScoreTrend = trend
	return nil
}

func TestCreateOpinionRules(t *testing.T) {
	h := NewOpinionHandler(newFakeOpinions(), zap.NewNop())
	tests := []struct {
		name string
		body string
		want int
	}{
		{"text", `{"kind":"TEXT","text":"Craft services should be union"}`, http.StatusCreated},
		{"photo without asset", `{"kind":"PHOTO","text":"look"}`, http.StatusBadRequest},
		{"poll with one option", `{"kind":"POLL","poll_options":["yes"]}`, http.StatusBadRequest},
		{"poll", `{"kind":"POLL","text":"Best lens?","poll_options":["35mm","50mm"]}`, http.StatusCreated},
		{"unknown kind", `{"kind":"VIDEO"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := call(t, h.Create, http.MethodPost, "/opinions", tt.body, 1)
			if tt.want == http.StatusCreated {
				require.NoError(t, err)
				assert.Equal(t, tt.want, rec.Code)
				return
			}
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}
}

func TestVote(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Minute)
	open := models.Opinion{
		ID:          primitive.NewObjectID(),
		Kind:        models.OpinionPoll,
		PollOptions: []models.PollOption{{ID: "a", Label: "35mm"}, {ID: "b", Label: "50mm"}},
		CreatedAt:   now.Add(-time.Hour),
	}
	closed := open
	closed.ID = primitive.NewObjectID()
	closed.PollEndsAt = &ended
	store := newFakeOpinions(open, closed)
	h := NewOpinionHandler(store, zap.NewNop())
	h.now = func() time.Time { return now }
	id := open.ID.Hex()

	rec, err := call(t, h.Vote, http.MethodPost, "/opinions/"+id+"/vote", `{"option_id":"b"}`, 1, "id", id)
	require.NoError(t, err)
	var out struct {
		VoteCount   int                 `json:"vote_count"`
		PollOptions []models.PollOption `json:"poll_options"`
	}
	decode(t, rec, &out)
	assert.Equal(t, 1, out.VoteCount)
	assert.Equal(t, 1, out.PollOptions[1].Count)
	assert.Equal(t, 1, store.scored)

	_, err = call(t, h.Vote, http.MethodPost, "/opinions/"+id+"/vote", `{"option_id":"a"}`, 1, "id", id)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = call(t, h.Vote, http.MethodPost, "/opinions/"+id+"/vote", `{"option_id":"z"}`, 2, "id", id)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Unknown poll option", messageOf(t, err))

	cid := closed.ID.Hex()
	_, err = call(t, h.Vote, http.MethodPost, "/opinions/"+cid+"/vote", `{"option_id":"a"}`, 2, "id", cid)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Poll has ended", messageOf(t, err))
}

func TestReactCountsOnce(t *testing.T) {
	op := models.Opinion{ID: primitive.NewObjectID(), Kind: models.OpinionText, CreatedAt: time.Now()}
	store := newFakeOpinions(op)
	h := NewOpinionHandler(store, zap.NewNop())
	id := op.ID.Hex()

	for i := 0; i < 2; i++ {
		rec, err := call(t, h.React, http.MethodPost, "/opinions/"+id+"/react", "", 4, "id", id)
		require.NoError(t, err)
		var out struct {
			ReactionCount int `json:"reaction_count"`
		}
		decode(t, rec, &out)
		assert.Equal(t, 1, out.ReactionCount)
	}
	assert.Equal(t, 1, store.scored)
}
