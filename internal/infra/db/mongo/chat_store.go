package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentmechat/internal/domain/chat"
)

// ChatStore keeps conversations unique per (listing, guest, host) with a unique index,
// so find-or-create stays idempotent across stub replicas.
type ChatStore struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewChatStore(ctx context.Context, db *mongo.Database) (*ChatStore, error) {
	conversations := db.Collection("chat_conversations")
	messages := db.Collection("chat_messages")
	_, err := conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "guest_id", Value: 1}, {Key: "host_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: conversation index: %w", err)
	}
	_, err = messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sent_at", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: message index: %w", err)
	}
	return &ChatStore{conversations: conversations, messages: messages}, nil
}

type conversationDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	GuestID   string    `bson:"guest_id"`
	HostID    string    `bson:"host_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d conversationDocument) toDomain() chat.Conversation {
	return chat.Conversation{
		ID:        chat.ConversationID(d.ID),
		ListingID: chat.ListingID(d.ListingID),
		GuestID:   chat.UserID(d.GuestID),
		HostID:    chat.UserID(d.HostID),
		CreatedAt: d.CreatedAt,
	}
}

type messageDocument struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversation_id"`
	SenderID       string    `bson:"sender_id"`
	Body           string    `bson:"body"`
	SentAt         time.Time `bson:"sent_at"`
}

func (d messageDocument) toDomain() chat.Message {
	return chat.Message{
		ID:             chat.MessageID(d.ID),
		ConversationID: chat.ConversationID(d.ConversationID),
		SenderID:       chat.UserID(d.SenderID),
		Body:           d.Body,
		SentAt:         d.SentAt,
		Status:         chat.StatusConfirmed,
	}
}

// FindOrCreateConversation upserts on the triple. When two callers race, the
// loser hits the unique index and reads the winner's document.
func (s *ChatStore) FindOrCreateConversation(ctx context.Context, triple chat.Triple, id chat.ConversationID, now time.Time) (chat.Conversation, bool, error) {
	filter := bson.M{
		"listing_id": string(triple.ListingID),
		"guest_id":   string(triple.GuestID),
		"host_id":    string(triple.HostID),
	}
	update := bson.M{"$setOnInsert": bson.M{"_id": string(id), "created_at": now.UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDocument
	err := s.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = s.conversations.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return chat.Conversation{}, false, err
	}
	return doc.toDomain(), doc.ID == string(id), nil
}

func (s *ChatStore) Conversation(ctx context.Context, id chat.ConversationID) (chat.Conversation, error) {
	var doc conversationDocument
	if err := s.conversations.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return chat.Conversation{}, chat.ErrConversationNotFound
		}
		return chat.Conversation{}, err
	}
	return doc.toDomain(), nil
}

func (s *ChatStore) AddMessage(ctx context.Context, msg chat.Message) error {
	_, err := s.messages.InsertOne(ctx, messageDocument{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Body:           msg.Body,
		SentAt:         msg.SentAt.UTC(),
	})
	return err
}

func (s *ChatStore) ListMessages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"conversation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
