package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/dbmongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	// ErrAlreadyRedacted is returned by a Deleted update that lost to an
	// earlier redaction of the same message.
	ErrAlreadyRedacted = errors.New("message already redacted")
)

// FlagUpdate selects the one-way transitions applied by UpdateFlags.
// A false field leaves the stored value untouched.
type FlagUpdate struct {
	Read    bool
	Seen    bool
	Deleted bool
}

type ConversationQuery struct {
	Limit  int64
	Offset int64
	// ExcludeDeletedFor hides messages this user tombstoned.
	ExcludeDeletedFor string
}

type MessageStore interface {
	Create(ctx context.Context, msg *dbmongo.Message) error
	FindByID(ctx context.Context, id string) (*dbmongo.Message, error)
	UpdateFlags(ctx context.Context, id string, update FlagUpdate) (*dbmongo.Message, error)
	AddTombstone(ctx context.Context, id, userID string) (*dbmongo.Message, error)
	MarkSeen(ctx context.Context, senderID, receiverID string) (int64, error)
	FindConversation(ctx context.Context, a, b string, q ConversationQuery) ([]*dbmongo.Message, error)
	ClearConversation(ctx context.Context, a, b string) (int64, error)
	// CountMediaRefs counts messages still pointing at a media blob.
	CountMediaRefs(ctx context.Context, fileID string) (int64, error)
}

type mongoMessageStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMessageStore(client *dbmongo.MongoClient) MessageStore {
	return newMessageStore(client.Database.Collection(dbmongo.MessagesCollection))
}

func newMessageStore(coll *mongo.Collection) *mongoMessageStore {
	return &mongoMessageStore{coll: coll, now: time.Now}
}

// EnsureIndexes creates the indexes conversation and seen queries rely on.
func EnsureIndexes(ctx context.Context, client *dbmongo.MongoClient) error {
	coll := client.Database.Collection(dbmongo.MessagesCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "sender_id", Value: 1}, {Key: "seen", Value: 1}}},
		{Keys: bson.D{{Key: "media.file_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

func (s *mongoMessageStore) Create(ctx context.Context, msg *dbmongo.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	if msg.DeletedFor == nil {
		msg.DeletedFor = []string{}
	}

	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *mongoMessageStore) FindByID(ctx context.Context, id string) (*dbmongo.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	var msg dbmongo.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

func (s *mongoMessageStore) UpdateFlags(ctx context.Context, id string, update FlagUpdate) (*dbmongo.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	pipeline := s.flagPipeline(update)
	if len(pipeline) == 0 {
		return s.FindByID(ctx, id)
	}

	filter := bson.M{"_id": oid}
	if update.Deleted {
		// Only one concurrent redaction may win.
		filter["kind"] = bson.M{"$ne": common.MessageKindDeleted}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var msg dbmongo.Message
	if err := s.coll.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if update.Deleted {
				return nil, ErrAlreadyRedacted
			}
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to update message flags: %w", err)
	}
	return &msg, nil
}

// flagPipeline builds an update pipeline so read_at keeps its first value.
func (s *mongoMessageStore) flagPipeline(update FlagUpdate) mongo.Pipeline {
	set := bson.D{}
	if update.Read || update.Seen {
		set = append(set,
			bson.E{Key: "read", Value: true},
			bson.E{Key: "read_at", Value: bson.M{"$ifNull": bson.A{"$read_at", s.now().UTC()}}},
		)
	}
	if update.Seen {
		set = append(set, bson.E{Key: "seen", Value: true})
	}
	if update.Deleted {
		set = append(set,
			bson.E{Key: "kind", Value: common.MessageKindDeleted},
			bson.E{Key: "content", Value: ""},
		)
	}

	var pipeline mongo.Pipeline
	if len(set) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: set}})
	}
	if update.Deleted {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: bson.A{"media", "post_ref"}}})
	}
	return pipeline
}

func (s *mongoMessageStore) AddTombstone(ctx context.Context, id, userID string) (*dbmongo.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$addToSet": bson.M{"deleted_for": userID}}

	var msg dbmongo.Message
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to tombstone message: %w", err)
	}
	return &msg, nil
}

// MarkSeen flips every unseen message sent by senderID to receiverID.
func (s *mongoMessageStore) MarkSeen(ctx context.Context, senderID, receiverID string) (int64, error) {
	filter := bson.M{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"seen":        false,
	}

	res, err := s.coll.UpdateMany(ctx, filter, s.flagPipeline(FlagUpdate{Seen: true}))
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return res.ModifiedCount, nil
}

// FindConversation returns one page of the a<->b conversation, oldest first.
// Offset counts back from the newest message.
func (s *mongoMessageStore) FindConversation(ctx context.Context, a, b string, q ConversationQuery) ([]*dbmongo.Message, error) {
	filter := conversationFilter(a, b)
	if q.ExcludeDeletedFor != "" {
		filter["deleted_for"] = bson.M{"$ne": q.ExcludeDeletedFor}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*dbmongo.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *mongoMessageStore) CountMediaRefs(ctx context.Context, fileID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"media.file_id": fileID})
	if err != nil {
		return 0, fmt.Errorf("failed to count media references: %w", err)
	}
	return n, nil
}

func (s *mongoMessageStore) ClearConversation(ctx context.Context, a, b string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, conversationFilter(a, b))
	if err != nil {
		return 0, fmt.Errorf("failed to clear conversation: %w", err)
	}
	return res.DeletedCount, nil
}

func conversationFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
}
