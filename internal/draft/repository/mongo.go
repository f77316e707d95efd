package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/draftdeck/draftdeck/internal/draft"
)

// MongoRepo is the MongoDB-backed draft store. Drafts key on the string "id"
// field; the version field backs optimistic updates.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "contentHash", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledFor", Value: 1}}},
	}
	col.Indexes().CreateMany(context.Background(), idx)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, d *draft.Draft) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Version = 1
	_, err := m.col.InsertOne(ctx, d)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*draft.Draft, error) {
	var d draft.Draft
	if err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, draft.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) ListByTeam(ctx context.Context, teamID string) ([]*draft.Draft, error) {
	return m.find(ctx, bson.M{"teamId": teamID})
}

func (m *MongoRepo) FindActiveByHash(ctx context.Context, teamID, hash string) (*draft.Draft, error) {
	if hash == "" {
		return nil, nil
	}
	filter := bson.M{
		"teamId":      teamID,
		"contentHash": hash,
		"status": bson.M{"$in": []draft.Status{
			draft.StatusPendingApproval, draft.StatusApproved, draft.StatusScheduled,
		}},
	}
	var d draft.Draft
	if err := m.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) ListScheduledDue(ctx context.Context, now time.Time) ([]*draft.Draft, error) {
	return m.find(ctx, bson.M{
		"status":       draft.StatusScheduled,
		"scheduledFor": bson.M{"$lte": now},
	})
}

// Update matches on (id, version); MatchedCount 0 on an existing draft means
// the caller lost the race.
func (m *MongoRepo) Update(ctx context.Context, d *draft.Draft) error {
	prev := d.Version
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	res, err := m.col.ReplaceOne(ctx, bson.M{"id": d.ID, "version": prev}, d)
	if err != nil {
		d.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		d.Version = prev
		if _, getErr := m.Get(ctx, d.ID); getErr != nil {
			return draft.ErrNotFound
		}
		return draft.ErrConflict
	}
	return nil
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*draft.Draft, error) {
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*draft.Draft{}
	for cur.Next(ctx) {
		var d draft.Draft
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}
