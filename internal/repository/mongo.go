package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukerupert/idunn/internal/domain"
)

// ConnectMongo opens a client against the cart store. The connect and
// server-selection timeouts are deliberately short so an unreachable
// store surfaces as a fast failure instead of a hung request; opTimeout
// bounds every individual operation.
func ConnectMongo(ctx context.Context, uri string, opTimeout time.Duration) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetTimeout(opTimeout).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

type mongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates a cart repository backed by the "carts"
// collection of the given database.
func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoRepository) Save(ctx context.Context, cart *domain.Cart) error {
	if cart.Version == 0 {
		return m.insert(ctx, cart)
	}
	return m.replace(ctx, cart)
}

// insert creates the document on first write. The unique index on user_id
// turns a concurrent first-add for the same user into a version conflict
// rather than a duplicate cart.
func (m *mongoRepository) insert(ctx context.Context, cart *domain.Cart) error {
	cart.Version = 1

	_, err := m.collection.InsertOne(ctx, cart)
	if err != nil {
		cart.Version = 0
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to insert cart: %w", err)
	}

	return nil
}

// replace swaps the whole document, but only if the stored version still
// matches the version the caller read.
func (m *mongoRepository) replace(ctx context.Context, cart *domain.Cart) error {
	readVersion := cart.Version
	cart.Version = readVersion + 1

	filter := bson.M{"user_id": cart.UserID, "version": readVersion}
	result, err := m.collection.ReplaceOne(ctx, filter, cart)
	if err != nil {
		cart.Version = readVersion
		return fmt.Errorf("failed to replace cart: %w", err)
	}

	if result.MatchedCount == 0 {
		cart.Version = readVersion
		return ErrVersionConflict
	}

	return nil
}

func (m *mongoRepository) Ping(ctx context.Context) error {
	if err := m.collection.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping cart store: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique user_id index the optimistic insert
// path depends on. Called once at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("carts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}
