package repositories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostQuery narrows a post listing. Nil slices mean "no constraint";
// an empty non-nil AuthorIn matches nothing.
type PostQuery struct {
	AuthorIn    []uint
	AuthorNotIn []uint
	IDs         []string
	// Text matches the caption or an exact tag; TextAuthors are authors whose
	// profile matched the same text.
	Text        string
	TextAuthors []uint
	AnyTags     []string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) (map[string]models.Post, error)
	ListPosts(ctx context.Context, q PostQuery, cursor *pagination.Cursor, limit int) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the listing indexes. Safe to call repeatedly.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author_profile_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	return err
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("post: %w", ErrNotFound)
	}

	var post models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post); err != nil {
		return nil, wrapNotFound("post", err)
	}
	return &post, nil
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func (r *MongoPostRepository) GetPostsByIDs(ctx context.Context, ids []string) (map[string]models.Post, error) {
	out := make(map[string]models.Post, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	for _, p := range posts {
		out[p.ID.Hex()] = p
	}
	return out, nil
}

// postFilter builds the mongo filter for q. It is split out for tests.
func postFilter(q PostQuery) bson.M {
	and := bson.A{}
	if q.AuthorIn != nil {
		and = append(and, bson.M{"author_profile_id": bson.M{"$in": q.AuthorIn}})
	}
	if len(q.AuthorNotIn) > 0 {
		and = append(and, bson.M{"author_profile_id": bson.M{"$nin": q.AuthorNotIn}})
	}
	if q.IDs != nil {
		and = append(and, bson.M{"_id": bson.M{"$in": objectIDs(q.IDs)}})
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		or := bson.A{
			bson.M{"caption": primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}},
			bson.M{"tags": text},
		}
		if len(q.TextAuthors) > 0 {
			or = append(or, bson.M{"author_profile_id": bson.M{"$in": q.TextAuthors}})
		}
		and = append(and, bson.M{"$or": or})
	}
	if len(q.AnyTags) > 0 {
		and = append(and, bson.M{"tags": bson.M{"$in": q.AnyTags}})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

// ListPosts returns up to limit+1 posts newest first, starting at cursor.
func (r *MongoPostRepository) ListPosts(ctx context.Context, q PostQuery, cursor *pagination.Cursor, limit int) ([]models.Post, error) {
	filter := postFilter(q)
	if cursor != nil {
		keyset, err := pagination.MongoTimeDesc(cursor)
		if err != nil {
			return nil, err
		}
		filter = bson.M{"$and": bson.A{filter, keyset}}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))
	cur, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err = cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("post: %w", ErrNotFound)
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post: %w", ErrNotFound)
	}
	return nil
}
