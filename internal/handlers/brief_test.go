package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBriefs struct {
	repositories.BriefRepository
	briefs    map[uint]*models.Brief
	invited   map[[2]uint]bool
	proposals map[uint]*models.Proposal
	nextID    uint
}

func newFakeBriefs() *fakeBriefs {
	return &fakeBriefs{
		briefs:    map[uint]*models.Brief{},
		invited:   map[[2]uint]bool{},
		proposals: map[uint]*models.Proposal{},
	}
}

func (f *fakeBriefs) CreateBrief(_ context.Context, b *models.Brief) error {
	f.nextID++
	b.ID = f.nextID
	b.Status = models.BriefOpen
	cp := *b
	f.briefs[b.ID] = &cp
	return nil
}

func (f *fakeBriefs) GetBrief(_ context.Context, id uint) (*models.Brief, error) {
	if b, ok := f.briefs[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, fmt.Errorf("brief %d: %w", id, repositories.ErrNotFound)
}

func (f *fakeBriefs) Invite(_ context.Context, briefID, profileID uint) error {
	f.invited[[2]uint{briefID, profileID}] = true
	return nil
}

func (f *fakeBriefs) IsInvited(_ context.Context, briefID, profileID uint) (bool, error) {
	return f.invited[[2]uint{briefID, profileID}], nil
}

func (f *fakeBriefs) CreateProposal(_ context.Context, p *models.Proposal) error {
	f.nextID++
	p.ID = f.nextID
	p.Status = models.ProposalSubmitted
	cp := *p
	f.proposals[p.ID] = &cp
	return nil
}

func (f *fakeBriefs) GetProposal(_ context.Context, id uint) (*models.Proposal, error) {
	if p, ok := f.proposals[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBriefs) SetProposalStatus(_ context.Context, p *models.Proposal, status string) error {
	f.proposals[p.ID].Status = status
	if status == models.ProposalAccepted {
		f.briefs[p.BriefID].Status = models.BriefClosed
	}
	return nil
}

func newBriefFixture() (*BriefHandler, *fakeBriefs, *fakeNotifications) {
	briefs := newFakeBriefs()
	notes := newFakeNotifications()
	return NewBriefHandler(briefs, crewProfiles(), newNotifier(notes), zap.NewNop()), briefs, notes
}

func TestCreateBriefDefaultsCurrency(t *testing.T) {
	h, _, _ := newBriefFixture()

	rec, err := call(t, h.Create, http.MethodPost, "/briefs",
		`{"title":"Two-day commercial","description":"Need a gaffer","budget_min":500,"budget_max":900}`, 1)
	require.NoError(t, err)
	var out models.Brief
	decode(t, rec, &out)
	assert.Equal(t, "CAD", out.Currency)
	assert.Equal(t, models.BriefOpen, out.Status)

	_, err = call(t, h.Create, http.MethodPost, "/briefs",
		`{"title":"x","description":"y","budget_min":900,"budget_max":500}`, 1)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestBriefInviteAndProposalFlow(t *testing.T) {
	h, briefs, notes := newBriefFixture()
	b := &models.Brief{OwnerUserID: 1, Title: "Music video", Description: "Grip needed"}
	require.NoError(t, briefs.CreateBrief(context.Background(), b))
	id := fmt.Sprint(b.ID)

	// Ben (user 2) may not answer before being invited.
	_, err := call(t, h.SubmitProposal, http.MethodPost, "/briefs/"+id+"/proposals", `{"message":"I'm in"}`, 2, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.Equal(t, "Not invited", messageOf(t, err))

	_, err = call(t, h.InviteByHandle, http.MethodPost, "/briefs/"+id+"/invite", `{"handle":"@BEN"}`, 2, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err), "only the owner invites")

	_, err = call(t, h.InviteByHandle, http.MethodPost, "/briefs/"+id+"/invite", `{"handle":"@BEN"}`, 1, "id", id)
	require.NoError(t, err)
	invite := notes.to(2)
	require.Len(t, invite, 1)
	assert.Equal(t, models.NotifProject, invite[0].Type)
	assert.Equal(t, models.ContextBrief, invite[0].ContextType)

	_, err = call(t, h.InviteByHandle, http.MethodPost, "/briefs/"+id+"/invite", `{"handle":"ghost"}`, 1, "id", id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	rec, err := call(t, h.SubmitProposal, http.MethodPost, "/briefs/"+id+"/proposals", `{"message":"I'm in","price":700}`, 2, "id", id)
	require.NoError(t, err)
	var p models.Proposal
	decode(t, rec, &p)
	assert.Equal(t, uint(20), p.ProfileID)
	toOwner := notes.to(1)
	require.Len(t, toOwner, 1)
	assert.Equal(t, "Ben sent a proposal", toOwner[0].Title)

	rec, err = call(t, h.Get, http.MethodGet, "/briefs/"+id, "", 2, "id", id)
	require.NoError(t, err, "invited profiles can read the brief")
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err = call(t, h.Get, http.MethodGet, "/briefs/"+id, "", 3, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	pid := fmt.Sprint(p.ID)
	_, err = call(t, h.SetProposalStatus, http.MethodPatch, "/proposals/"+pid+"/status", `{"status":"accepted"}`, 2, "id", pid)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = call(t, h.SetProposalStatus, http.MethodPatch, "/proposals/"+pid+"/status", `{"status":"accepted"}`, 1, "id", pid)
	require.NoError(t, err)
	assert.Equal(t, models.BriefClosed, briefs.briefs[b.ID].Status)

	_, err = call(t, h.SubmitProposal, http.MethodPost, "/briefs/"+id+"/proposals", `{"message":"late"}`, 2, "id", id)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}
