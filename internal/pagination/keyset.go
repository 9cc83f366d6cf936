package pagination

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// KeysetDesc restricts a "col DESC, id DESC" query to rows at or after the cursor.
func KeysetDesc(db *gorm.DB, col string, c *Cursor) (*gorm.DB, error) {
	if c == nil {
		return db, nil
	}
	id, err := c.UintID()
	if err != nil {
		return nil, err
	}
	return db.Where(fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND id <= ?)", col), c.At, c.At, id), nil
}

// KeysetAsc is KeysetDesc for "col ASC, id ASC" listings.
func KeysetAsc(db *gorm.DB, col string, c *Cursor) (*gorm.DB, error) {
	if c == nil {
		return db, nil
	}
	id, err := c.UintID()
	if err != nil {
		return nil, err
	}
	return db.Where(fmt.Sprintf("(%[1]s > ?) OR (%[1]s = ? AND id >= ?)", col), c.At, c.At, id), nil
}

// MongoTimeDesc is the document-store form of KeysetDesc over created_at and _id.
func MongoTimeDesc(c *Cursor) (bson.M, error) {
	if c == nil {
		return bson.M{}, nil
	}
	oid, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidCursor, c.ID)
	}
	return bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$lt": c.At}},
		bson.M{"created_at": c.At, "_id": bson.M{"$lte": oid}},
	}}, nil
}

// MongoScoreDesc pages a "field DESC, _id DESC" listing by score.
func MongoScoreDesc(field string, c *Cursor) (bson.M, error) {
	if c == nil {
		return bson.M{}, nil
	}
	if c.Score == nil {
		return nil, fmt.Errorf("%w: missing score", ErrInvalidCursor)
	}
	oid, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidCursor, c.ID)
	}
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$lt": *c.Score}},
		bson.M{field: *c.Score, "_id": bson.M{"$lte": oid}},
	}}, nil
}

// ObjectKey builds a cursor for a document ordered by created_at then _id.
func ObjectKey(at time.Time, id primitive.ObjectID) Cursor {
	return Cursor{At: at.UTC(), ID: id.Hex()}
}

// ScoreKey builds a cursor for a document ordered by a score then _id.
func ScoreKey(score float64, id primitive.ObjectID) Cursor {
	s := score
	return Cursor{Score: &s, ID: id.Hex()}
}
