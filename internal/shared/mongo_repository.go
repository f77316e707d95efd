package shared

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository over two collections: shares and
// comments. Tokens are unique-indexed for O(1) resolution.
type MongoRepository struct {
	shares   *mongo.Collection
	comments *mongo.Collection
}

func NewMongoRepository(shares, comments *mongo.Collection) *MongoRepository {
	shares.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "accessToken", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "draftId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	comments.Indexes().CreateOne(context.Background(),
		mongo.IndexModel{Keys: bson.D{{Key: "sharedDraftId", Value: 1}, {Key: "createdAt", Value: 1}}})
	return &MongoRepository{shares: shares, comments: comments}
}

func (r *MongoRepository) CreateShare(ctx context.Context, s *Share) error {
	_, err := r.shares.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) GetByToken(ctx context.Context, token string) (*Share, error) {
	var s Share
	if err := r.shares.FindOne(ctx, bson.M{"accessToken": token}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) GetShareByID(ctx context.Context, id string) (*Share, error) {
	var s Share
	if err := r.shares.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) GetActiveByDraft(ctx context.Context, draftID string, now time.Time) (*Share, error) {
	filter := bson.M{
		"draftId":    draftID,
		"shareState": ShareActive,
		"expiresAt":  bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var s Share
	if err := r.shares.FindOne(ctx, filter, opts).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) UpdateShare(ctx context.Context, s *Share) error {
	res, err := r.shares.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.shares.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) AddComment(ctx context.Context, c *Comment) error {
	_, err := r.comments.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) GetComment(ctx context.Context, id string) (*Comment, error) {
	var c Comment
	if err := r.comments.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) ListComments(ctx context.Context, sharedDraftID string) ([]*Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.comments.Find(ctx, bson.M{"sharedDraftId": sharedDraftID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Comment{}
	for cur.Next(ctx) {
		var c Comment
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *MongoRepository) UpdateComment(ctx context.Context, c *Comment) error {
	res, err := r.comments.ReplaceOne(ctx, bson.M{"id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}
