package handlers

import (
	"context"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
)

// PostView is a post with its author and like count.
type PostView struct {
	models.Post
	Author    *models.ProfileCompact `json:"author"`
	LikeCount int64                  `json:"like_count"`
}

// PostPresenter hydrates posts for listings with batched lookups.
type PostPresenter struct {
	profiles repositories.ProfileRepository
	likes    repositories.LikeRepository
}

func NewPostPresenter(profiles repositories.ProfileRepository, likes repositories.LikeRepository) *PostPresenter {
	return &PostPresenter{profiles: profiles, likes: likes}
}

// Views keeps only the first asset of each post when firstAssetOnly is set.
func (p *PostPresenter) Views(ctx context.Context, posts []models.Post, firstAssetOnly bool) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	for _, post := range posts {
		authorIDs = append(authorIDs, post.AuthorProfileID)
		postIDs = append(postIDs, post.ID.Hex())
	}
	authors, err := p.profiles.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	counts, err := p.likes.CountsByPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		if firstAssetOnly && len(post.Assets) > 1 {
			post.Assets = post.Assets[:1]
		}
		if post.Assets == nil {
			post.Assets = []models.PostAsset{}
		}
		if post.Tags == nil {
			post.Tags = []string{}
		}
		v := PostView{Post: post, LikeCount: counts[post.ID.Hex()]}
		if a, ok := authors[post.AuthorProfileID]; ok {
			compact := a.ToCompact()
			v.Author = &compact
		}
		views = append(views, v)
	}
	return views, nil
}

// View hydrates a single post.
func (p *PostPresenter) View(ctx context.Context, post models.Post, firstAssetOnly bool) (*PostView, error) {
	views, err := p.Views(ctx, []models.Post{post}, firstAssetOnly)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
