package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	sortRelevance     = "relevance"
	sortAZ            = "a_z"
	sortFollowersDesc = "followers_desc"
)

// SearchHandler serves profile and post search and the people directory
type SearchHandler struct {
	profileRepository repositories.ProfileRepository
	postRepository    repositories.PostRepository
	followRepository  repositories.FollowRepository
	presenter         *PostPresenter
	log               *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(
	profileRepo repositories.ProfileRepository,
	postRepo repositories.PostRepository,
	followRepo repositories.FollowRepository,
	presenter *PostPresenter,
	log *zap.Logger,
) *SearchHandler {
	return &SearchHandler{
		profileRepository: profileRepo,
		postRepository:    postRepo,
		followRepository:  followRepo,
		presenter:         presenter,
		log:               log,
	}
}

// RegisterSearchRoutes registers the public search routes
func (h *SearchHandler) RegisterSearchRoutes(public *echo.Group) {
	public.GET("/search/profiles", h.Profiles)
	public.GET("/search/posts", h.Posts)
	public.GET("/directory/profiles", h.Directory)
}

func facets(c echo.Context) repositories.ProfileSearch {
	return repositories.ProfileSearch{
		Q:          strings.TrimSpace(c.QueryParam("q")),
		Profession: strings.TrimSpace(c.QueryParam("profession")),
		City:       strings.TrimSpace(c.QueryParam("city")),
		Region:     strings.TrimSpace(c.QueryParam("region")),
	}
}

// Profiles searches profiles, most recently updated first.
func (h *SearchHandler) Profiles(c echo.Context) error {
	cursor, limit, err := pageParams(c, 20, 50)
	if err != nil {
		return err
	}
	rows, err := h.profileRepository.Search(c.Request().Context(), facets(c), cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	page, next := pagination.Trim(rows, limit, func(p models.Profile) pagination.Cursor {
		return pagination.TimeKey(p.UpdatedAt, p.ID)
	})
	out := make([]models.ProfileCompact, 0, len(page))
	for i := range page {
		out = append(out, page[i].ToCompact())
	}
	return respondPage(c, echo.Map{"items": out}, next)
}

// Posts searches captions, tags and authors, newest first.
func (h *SearchHandler) Posts(c echo.Context) error {
	cursor, limit, err := pageParams(c, 12, 50)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	q := repositories.PostQuery{}
	if text := strings.TrimSpace(c.QueryParam("q")); text != "" {
		ids, err := h.profileRepository.MatchingIDs(ctx, text, repositories.ProfileSearch{})
		if err != nil {
			return storeError(h.log, err, "Profile")
		}
		q.Text, q.TextAuthors = text, ids
	}
	posts, err := h.postRepository.ListPosts(ctx, q, cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	page, next := pagination.Trim(posts, limit, postKey)
	views, err := h.presenter.Views(ctx, page, true)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	return respondPage(c, echo.Map{"items": views}, next)
}

// DirectoryItem is a profile card in the people directory.
type DirectoryItem struct {
	models.Profile
	FollowerCount int64 `json:"follower_count"`
}

func optionalInt(c echo.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return &n, nil
}

// Directory lists profiles with follower counts. The follower range and the
// followers_desc order apply within the fetched page.
func (h *SearchHandler) Directory(c echo.Context) error {
	cursor, limit, err := pageParams(c, 24, 100)
	if err != nil {
		return err
	}
	sortBy := c.QueryParam("sort")
	switch sortBy {
	case "":
		sortBy = sortRelevance
	case sortRelevance, sortAZ, sortFollowersDesc:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "sort must be relevance, a_z or followers_desc")
	}
	minFollowers, err := optionalInt(c, "followersMin")
	if err != nil {
		return err
	}
	maxFollowers, err := optionalInt(c, "followersMax")
	if err != nil {
		return err
	}

	f := facets(c)
	f.Directory = true
	f.AZ = sortBy == sortAZ
	offset := 0
	if f.AZ && cursor != nil {
		if offset, err = cursor.Offset(); err != nil {
			return storeError(h.log, err, "Profile")
		}
	}
	if at := strings.ToUpper(strings.TrimSpace(c.QueryParam("accountType"))); at != "" {
		if at != models.AccountPersonal && at != models.AccountCompany {
			return echo.NewHTTPError(http.StatusBadRequest, "accountType must be PERSONAL or COMPANY")
		}
		f.AccountType = at
	}

	ctx := c.Request().Context()
	rows, err := h.profileRepository.Search(ctx, f, cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	var page []models.Profile
	var next *string
	if f.AZ {
		page = rows
		if len(rows) > limit {
			page = rows[:limit]
		}
		if len(rows) > limit && offset+limit <= pagination.MaxOffset {
			token := pagination.Encode(pagination.Cursor{ID: strconv.Itoa(offset + limit)})
			next = &token
		}
	} else {
		page, next = pagination.Trim(rows, limit, func(p models.Profile) pagination.Cursor {
			return pagination.TimeKey(p.CreatedAt, p.ID)
		})
	}

	ids := make([]uint, 0, len(page))
	for _, p := range page {
		ids = append(ids, p.ID)
	}
	counts := map[uint]int64{}
	if len(ids) > 0 {
		if counts, err = h.followRepository.FollowerCounts(ctx, ids); err != nil {
			return storeError(h.log, err, "Follow")
		}
	}

	items := make([]DirectoryItem, 0, len(page))
	for _, p := range page {
		n := counts[p.ID]
		if (minFollowers != nil && n < *minFollowers) || (maxFollowers != nil && n > *maxFollowers) {
			continue
		}
		if p.Professions == nil {
			p.Professions = pq.StringArray{}
		}
		items = append(items, DirectoryItem{Profile: p, FollowerCount: n})
	}
	if sortBy == sortFollowersDesc {
		sort.SliceStable(items, func(i, j int) bool { return items[i].FollowerCount > items[j].FollowerCount })
	}
	return respondPage(c, echo.Map{"items": items}, next)
}
