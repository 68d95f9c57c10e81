package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 3 * time.Second

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// Stores bundles the three Mongo-backed stores over one database.
type Stores struct {
	Conversations ConversationStore
	Messages      MessageStore
	Reactions     ReactionStore
}

// NewMongoStores wires the stores over the conversations, messages and
// reactions collections and creates the supporting indexes.
func NewMongoStores(db *mongo.Database) *Stores {
	convColl := db.Collection("conversations")
	msgColl := db.Collection("messages")
	reactColl := db.Collection("reactions")

	ctx := context.Background()
	_, _ = msgColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	_, _ = convColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_activity_at", Value: -1}},
	})
	_, _ = reactColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
	})

	return &Stores{
		Conversations: &mongoConversationStore{coll: convColl},
		Messages:      &mongoMessageStore{coll: msgColl, convColl: convColl},
		Reactions:     &mongoReactionStore{coll: reactColl},
	}
}
