package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/draftdeck/draftdeck/internal/schedule"
)

// MongoSlotRepo persists templates and concrete slots in one collection,
// discriminated by isRecurring.
type MongoSlotRepo struct {
	col *mongo.Collection
}

func NewMongoSlotRepo(col *mongo.Collection) *MongoSlotRepo {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "startTime", Value: 1}}},
	}
	col.Indexes().CreateMany(context.Background(), idx)
	return &MongoSlotRepo{col: col}
}

func (m *MongoSlotRepo) CreateSlot(ctx context.Context, s *schedule.TimeSlot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// Upsert on id keeps repeated materialization passes idempotent.
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, bson.M{"id": s.ID}, bson.M{"$setOnInsert": s}, opts)
	return err
}

func (m *MongoSlotRepo) GetSlot(ctx context.Context, id string) (*schedule.TimeSlot, error) {
	var s schedule.TimeSlot
	if err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, schedule.ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (m *MongoSlotRepo) ListTemplates(ctx context.Context, teamID string) ([]*schedule.TimeSlot, error) {
	return m.find(ctx, bson.M{"teamId": teamID, "isRecurring": true})
}

func (m *MongoSlotRepo) ListConcrete(ctx context.Context, teamID string, from, to time.Time) ([]*schedule.TimeSlot, error) {
	return m.find(ctx, bson.M{
		"teamId":      teamID,
		"isRecurring": false,
		"startTime":   bson.M{"$gte": from, "$lt": to},
	})
}

func (m *MongoSlotRepo) UpdateSlot(ctx context.Context, s *schedule.TimeSlot) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return schedule.ErrSlotNotFound
	}
	return nil
}

func (m *MongoSlotRepo) find(ctx context.Context, filter bson.M) ([]*schedule.TimeSlot, error) {
	cur, err := m.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*schedule.TimeSlot{}
	for cur.Next(ctx) {
		var s schedule.TimeSlot
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

// MongoQueueRepo persists per-team waiting lists. Replace deletes and
// reinserts the team's entries; callers serialize under the team lock.
type MongoQueueRepo struct {
	col *mongo.Collection
}

func NewMongoQueueRepo(col *mongo.Collection) *MongoQueueRepo {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "position", Value: 1}}}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoQueueRepo{col: col}
}

func (m *MongoQueueRepo) List(ctx context.Context, teamID string) ([]*schedule.QueueSlot, error) {
	cur, err := m.col.Find(ctx, bson.M{"teamId": teamID}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*schedule.QueueSlot{}
	for cur.Next(ctx) {
		var q schedule.QueueSlot
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	return out, cur.Err()
}

func (m *MongoQueueRepo) Replace(ctx context.Context, teamID string, entries []*schedule.QueueSlot) error {
	if _, err := m.col.DeleteMany(ctx, bson.M{"teamId": teamID}); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, q := range entries {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		docs[i] = q
	}
	_, err := m.col.InsertMany(ctx, docs)
	return err
}
