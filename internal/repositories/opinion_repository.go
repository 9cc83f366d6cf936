package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortNew      = "new"
	SortTrending = "trending"
	SortHot      = "hot"
)

// OpinionRepository defines the interface for opinion operations. Documents
// live in MongoDB, engagement rows in PostgreSQL.
type OpinionRepository interface {
	CreateOpinion(ctx context.Context, op *models.Opinion) error
	GetOpinion(ctx context.Context, id string) (*models.Opinion, error)
	ListOpinions(ctx context.Context, sort string, cursor *pagination.Cursor, limit int) ([]models.Opinion, error)
	RecentOpinions(ctx context.Context, since time.Time) ([]models.Opinion, error)
	IncrementCounter(ctx context.Context, id, field string) (*models.Opinion, error)
	IncrementVote(ctx context.Context, id, optionID string) (*models.Opinion, error)
	SetScores(ctx context.Context, id primitive.ObjectID, hot, trend float64) error
	AddReaction(ctx context.Context, reaction *models.OpinionReaction) (bool, error)
	AddComment(ctx context.Context, comment *models.OpinionComment) error
	ListComments(ctx context.Context, opinionID string) ([]models.OpinionComment, error)
	AddVote(ctx context.Context, vote *models.OpinionVote) error
}

// HybridOpinionRepository implements OpinionRepository over MongoDB and PostgreSQL
type HybridOpinionRepository struct {
	mongoCollection *mongo.Collection
	pgDB            *gorm.DB
}

func NewOpinionRepository(mongoDB *mongo.Database, pgDB *gorm.DB) *HybridOpinionRepository {
	return &HybridOpinionRepository{
		mongoCollection: mongoDB.Collection("opinions"),
		pgDB:            pgDB,
	}
}

func (r *HybridOpinionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.mongoCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "removed", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "removed", Value: 1}, {Key: "score_trend", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "removed", Value: 1}, {Key: "score_hot", Value: -1}, {Key: "_id", Value: -1}}},
	})
	return err
}

func (r *HybridOpinionRepository) CreateOpinion(ctx context.Context, op *models.Opinion) error {
	op.ID = primitive.NewObjectID()
	op.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.mongoCollection.InsertOne(ctx, op)
	return err
}

func (r *HybridOpinionRepository) GetOpinion(ctx context.Context, id string) (*models.Opinion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("opinion: %w", ErrNotFound)
	}
	var op models.Opinion
	err = r.mongoCollection.FindOne(ctx, bson.M{"_id": objID, "removed": false}).Decode(&op)
	if err != nil {
		return nil, wrapNotFound("opinion", err)
	}
	return &op, nil
}

func sortField(sort string) string {
	switch sort {
	case SortTrending:
		return "score_trend"
	case SortHot:
		return "score_hot"
	default:
		return "created_at"
	}
}

// ListOpinions returns up to limit+1 visible opinions in the given order.
func (r *HybridOpinionRepository) ListOpinions(ctx context.Context, sort string, cursor *pagination.Cursor, limit int) ([]models.Opinion, error) {
	field := sortField(sort)
	filter := bson.M{"removed": false}
	if cursor != nil {
		var keyset bson.M
		var err error
		if field == "created_at" {
			keyset, err = pagination.MongoTimeDesc(cursor)
		} else {
			keyset, err = pagination.MongoScoreDesc(field, cursor)
		}
		if err != nil {
			return nil, err
		}
		filter = bson.M{"$and": bson.A{filter, keyset}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))
	cur, err := r.mongoCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ops := []models.Opinion{}
	if err = cur.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *HybridOpinionRepository) RecentOpinions(ctx context.Context, since time.Time) ([]models.Opinion, error) {
	cur, err := r.mongoCollection.Find(ctx, bson.M{"removed": false, "created_at": bson.M{"$gte": since}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ops []models.Opinion
	if err = cur.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *HybridOpinionRepository) findAndUpdate(ctx context.Context, id string, filter bson.M, update bson.M, opts ...*options.FindOneAndUpdateOptions) (*models.Opinion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("opinion: %w", ErrNotFound)
	}
	filter["_id"] = objID
	opts = append(opts, options.FindOneAndUpdate().SetReturnDocument(options.After))
	var op models.Opinion
	if err := r.mongoCollection.FindOneAndUpdate(ctx, filter, update, opts...).Decode(&op); err != nil {
		return nil, wrapNotFound("opinion", err)
	}
	return &op, nil
}

// IncrementCounter adds one to reaction_count or comment_count.
func (r *HybridOpinionRepository) IncrementCounter(ctx context.Context, id, field string) (*models.Opinion, error) {
	return r.findAndUpdate(ctx, id, bson.M{}, bson.M{"$inc": bson.M{field: 1}})
}

// IncrementVote counts one vote for optionID.
func (r *HybridOpinionRepository) IncrementVote(ctx context.Context, id, optionID string) (*models.Opinion, error) {
	opts := options.FindOneAndUpdate().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"opt.id": optionID}},
	})
	return r.findAndUpdate(ctx, id,
		bson.M{"poll_options.id": optionID},
		bson.M{"$inc": bson.M{"vote_count": 1, "poll_options.$[opt].count": 1}},
		opts)
}

func (r *HybridOpinionRepository) SetScores(ctx context.Context, id primitive.ObjectID, hot, trend float64) error {
	_, err := r.mongoCollection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"score_hot": hot, "score_trend": trend}})
	return err
}

// AddReaction stores the reaction once and reports whether it was new.
func (r *HybridOpinionRepository) AddReaction(ctx context.Context, reaction *models.OpinionReaction) (bool, error) {
	res := r.pgDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reaction)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *HybridOpinionRepository) AddComment(ctx context.Context, comment *models.OpinionComment) error {
	return r.pgDB.WithContext(ctx).Create(comment).Error
}

func (r *HybridOpinionRepository) ListComments(ctx context.Context, opinionID string) ([]models.OpinionComment, error) {
	comments := []models.OpinionComment{}
	err := r.pgDB.WithContext(ctx).Where("opinion_id = ?", opinionID).
		Order("created_at ASC").Order("id ASC").Limit(MaxOpinionComments).Find(&comments).Error
	return comments, err
}

// AddVote returns ErrConflict when the user already voted.
func (r *HybridOpinionRepository) AddVote(ctx context.Context, vote *models.OpinionVote) error {
	if err := r.pgDB.WithContext(ctx).Create(vote).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}
