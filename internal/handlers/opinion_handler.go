package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/ranking"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const reactionLike = "like"

// OpinionHandler serves the anonymous opinions board
type OpinionHandler struct {
	opinionRepository repositories.OpinionRepository
	log               *zap.Logger
	now               func() time.Time
}

// NewOpinionHandler creates a new OpinionHandler
func NewOpinionHandler(opinionRepo repositories.OpinionRepository, log *zap.Logger) *OpinionHandler {
	return &OpinionHandler{opinionRepository: opinionRepo, log: log, now: time.Now}
}

// RegisterOpinionRoutes registers opinion routes
func (h *OpinionHandler) RegisterOpinionRoutes(public, private *echo.Group) {
	private.POST("/opinions", h.Create)
	public.GET("/opinions/new", h.list(repositories.SortNew))
	public.GET("/opinions/trending", h.list(repositories.SortTrending))
	public.GET("/opinions/hot", h.list(repositories.SortHot))
	private.POST("/opinions/:id/react", h.React)
	private.POST("/opinions/:id/comments", h.Comment)
	public.GET("/opinions/:id/comments", h.ListComments)
	private.POST("/opinions/:id/vote", h.Vote)
}

// Create stores a new opinion. Photos need an asset, polls 2 to 10 options.
func (h *OpinionHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateOpinionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	switch req.Kind {
	case models.OpinionPhoto:
		if len(req.Assets) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "A photo opinion needs at least one asset")
		}
	case models.OpinionPoll:
		if len(req.PollOptions) < 2 || len(req.PollOptions) > 10 {
			return echo.NewHTTPError(http.StatusBadRequest, "A poll needs 2 to 10 options")
		}
	}

	op := &models.Opinion{
		AuthorUserID: userID,
		Kind:         req.Kind,
		Text:         strings.TrimSpace(req.Text),
		Assets:       []models.PostAsset{},
		PollEndsAt:   req.PollEndsAt,
	}
	for i, a := range req.Assets {
		order := i
		if a.Order != nil {
			order = *a.Order
		}
		op.Assets = append(op.Assets, models.PostAsset{URL: a.URL, AltText: strings.TrimSpace(a.AltText), Order: order})
	}
	sort.SliceStable(op.Assets, func(i, j int) bool { return op.Assets[i].Order < op.Assets[j].Order })
	if req.Kind == models.OpinionPoll {
		for _, label := range req.PollOptions {
			op.PollOptions = append(op.PollOptions, models.PollOption{ID: uuid.NewString(), Label: strings.TrimSpace(label)})
		}
	}

	if err := h.opinionRepository.CreateOpinion(c.Request().Context(), op); err != nil {
		return storeError(h.log, err, "Opinion")
	}
	return respond(c, http.StatusCreated, echo.Map{"id": op.ID.Hex(), "created_at": op.CreatedAt})
}

func opinionKey(sort string) func(models.Opinion) pagination.Cursor {
	return func(op models.Opinion) pagination.Cursor {
		switch sort {
		case repositories.SortTrending:
			return pagination.ScoreKey(op.ScoreTrend, op.ID)
		case repositories.SortHot:
			return pagination.ScoreKey(op.ScoreHot, op.ID)
		}
		return pagination.ObjectKey(op.CreatedAt, op.ID)
	}
}

func (h *OpinionHandler) list(sort string) echo.HandlerFunc {
	return func(c echo.Context) error {
		cursor, limit, err := pageParams(c, 12, 50)
		if err != nil {
			return err
		}
		ops, err := h.opinionRepository.ListOpinions(c.Request().Context(), sort, cursor, limit)
		if err != nil {
			return storeError(h.log, err, "Opinion")
		}
		page, next := pagination.Trim(ops, limit, opinionKey(sort))
		for i := range page {
			if page[i].Assets == nil {
				page[i].Assets = []models.PostAsset{}
			}
		}
		return respondPage(c, echo.Map{"items": page}, next)
	}
}

// rescore recomputes an opinion's scores after engagement. Failures are
// logged; the cron job catches up.
func (h *OpinionHandler) rescore(c echo.Context, op *models.Opinion) {
	if err := ranking.Apply(c.Request().Context(), h.opinionRepository, op, h.now()); err != nil {
		h.log.Warn("opinion rescore failed", zap.String("opinion_id", op.ID.Hex()), zap.Error(err))
	}
}

// React likes an opinion once per user.
func (h *OpinionHandler) React(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	op, err := h.opinionRepository.GetOpinion(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Opinion")
	}
	created, err := h.opinionRepository.AddReaction(ctx, &models.OpinionReaction{OpinionID: id, UserID: userID, Kind: reactionLike})
	if err != nil {
		return storeError(h.log, err, "Reaction")
	}
	if created {
		if op, err = h.opinionRepository.IncrementCounter(ctx, id, "reaction_count"); err != nil {
			return storeError(h.log, err, "Opinion")
		}
		h.rescore(c, op)
	}
	return respond(c, http.StatusOK, echo.Map{"ok": true, "reaction_count": op.ReactionCount})
}

// Comment adds an anonymous comment.
func (h *OpinionHandler) Comment(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CommentOpinionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.opinionRepository.GetOpinion(ctx, id); err != nil {
		return storeError(h.log, err, "Opinion")
	}
	comment := &models.OpinionComment{OpinionID: id, AuthorUserID: userID, Text: strings.TrimSpace(req.Text)}
	if err := h.opinionRepository.AddComment(ctx, comment); err != nil {
		return storeError(h.log, err, "Comment")
	}
	op, err := h.opinionRepository.IncrementCounter(ctx, id, "comment_count")
	if err != nil {
		return storeError(h.log, err, "Opinion")
	}
	h.rescore(c, op)
	return respond(c, http.StatusCreated, comment)
}

func (h *OpinionHandler) ListComments(c echo.Context) error {
	comments, err := h.opinionRepository.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(h.log, err, "Comment")
	}
	return respond(c, http.StatusOK, echo.Map{"items": comments})
}

// Vote casts the caller's single vote in a poll.
func (h *OpinionHandler) Vote(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.VoteOpinionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	op, err := h.opinionRepository.GetOpinion(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Opinion")
	}
	if op.PollEndsAt != nil && !h.now().Before(*op.PollEndsAt) {
		return echo.NewHTTPError(http.StatusBadRequest, "Poll has ended")
	}
	known := false
	for _, o := range op.PollOptions {
		if o.ID == req.OptionID {
			known = true
			break
		}
	}
	if !known {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown poll option")
	}

	vote := &models.OpinionVote{OpinionID: id, VoterUserID: userID, OptionID: req.OptionID}
	if err := h.opinionRepository.AddVote(ctx, vote); err != nil {
		if isConflict(err) {
			return echo.NewHTTPError(http.StatusConflict, "Already voted")
		}
		return storeError(h.log, err, "Vote")
	}
	if op, err = h.opinionRepository.IncrementVote(ctx, id, req.OptionID); err != nil {
		return storeError(h.log, err, "Opinion")
	}
	h.rescore(c, op)
	return respond(c, http.StatusOK, echo.Map{"ok": true, "poll_options": op.PollOptions, "vote_count": op.VoteCount})
}
