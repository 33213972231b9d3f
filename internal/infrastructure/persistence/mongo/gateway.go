// Package mongo implements the document-store student gateway on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds MongoDB connection configuration.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// DefaultConfig returns a local default configuration.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "ege_scores",
		ConnectTimeout: 10 * time.Second,
	}
}

const (
	collectionStudents = "students"
	collectionScores   = "scores"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

type studentDoc struct {
	UserID       int64     `bson:"user_id"`
	FirstName    string    `bson:"first_name"`
	LastName     string    `bson:"last_name"`
	RegisteredAt time.Time `bson:"registered_at"`
}

type scoreDoc struct {
	UserID  int64  `bson:"user_id"`
	Subject string `bson:"subject"`
	Score   int    `bson:"score"`
}

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY
// ══════════════════════════════════════════════════════════════════════════════

// Gateway implements student.Gateway on MongoDB.
type Gateway struct {
	client   *mongo.Client
	students *mongo.Collection
	scores   *mongo.Collection
	mode     student.ScoreWriteMode
}

// Connect opens a client, pings the primary and ensures indexes.
func Connect(ctx context.Context, cfg Config, mode student.ScoreWriteMode) (*Gateway, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: failed to ping: %w", err)
	}

	db := client.Database(cfg.Database)
	g := &Gateway{
		client:   client,
		students: db.Collection(collectionStudents),
		scores:   db.Collection(collectionScores),
		mode:     mode,
	}

	if err := g.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return g, nil
}

// EnsureIndexes creates the unique student index and the score index.
// In replace mode the score index is unique per (user_id, subject).
func (g *Gateway) EnsureIndexes(ctx context.Context) error {
	_, err := g.students.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo: failed to create students index: %w", err)
	}

	scoreIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "subject", Value: 1}},
		Options: options.Index().SetName("user_subject"),
	}
	if g.mode == student.WriteModeReplace {
		scoreIndex.Options = options.Index().SetUnique(true).SetName("user_subject_unique")
	}
	if _, err := g.scores.Indexes().CreateOne(ctx, scoreIndex); err != nil {
		return fmt.Errorf("mongo: failed to create scores index: %w", err)
	}

	return nil
}

// Register inserts the student; a duplicate user_id is ignored.
func (g *Gateway) Register(ctx context.Context, userID student.UserID, firstName, lastName string) error {
	_, err := g.students.InsertOne(ctx, studentDoc{
		UserID:       int64(userID),
		FirstName:    firstName,
		LastName:     lastName,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("mongo: failed to register student: %w", err)
	}
	return nil
}

// IsRegistered reports whether a student document exists.
func (g *Gateway) IsRegistered(ctx context.Context, userID student.UserID) (bool, error) {
	n, err := g.students.CountDocuments(ctx, bson.M{"user_id": int64(userID)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: failed to check registration: %w", err)
	}
	return n > 0, nil
}

// UpsertScore upserts by (user_id, subject) in replace mode and inserts in append mode.
func (g *Gateway) UpsertScore(ctx context.Context, userID student.UserID, subject string, score student.Score) error {
	var err error
	if g.mode == student.WriteModeAppend {
		_, err = g.scores.InsertOne(ctx, scoreDoc{UserID: int64(userID), Subject: subject, Score: int(score)})
	} else {
		_, err = g.scores.UpdateOne(ctx,
			bson.M{"user_id": int64(userID), "subject": subject},
			bson.M{"$set": bson.M{"score": int(score)}},
			options.Update().SetUpsert(true),
		)
	}
	if err != nil {
		return fmt.Errorf("mongo: failed to save score: %w", err)
	}
	return nil
}

// ListScores returns the user's scores ordered by _id, which follows
// first insertion.
func (g *Gateway) ListScores(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	cur, err := g.scores.Find(ctx,
		bson.M{"user_id": int64(userID)},
		options.Find().
			SetProjection(bson.M{"subject": 1, "score": 1, "user_id": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to list scores: %w", err)
	}
	defer cur.Close(ctx)

	entries := make([]student.ScoreEntry, 0)
	for cur.Next(ctx) {
		var doc scoreDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: failed to decode score: %w", err)
		}
		entries = append(entries, student.ScoreEntry{Subject: doc.Subject, Score: student.Score(doc.Score)})
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor error: %w", err)
	}

	return entries, nil
}

// Ping checks the primary.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (g *Gateway) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}
