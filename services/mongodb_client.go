package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketinni/backend/config"
	"github.com/marketinni/backend/models"
)

// MongoDB collection names
const (
	MongoAlertCollection     = "alert"
	MongoUserCollection      = "user"
	MongoWatchlistCollection = "watchlist"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// MongoDBClient handles the MongoDB connection and document operations
// for alerts, users and watchlist rows
type MongoDBClient struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	lastError   string
}

// Global MongoDB client instance
var GlobalMongoClient *MongoDBClient

// InitMongoDBClient initializes the MongoDB client and connects
func InitMongoDBClient() error {
	GlobalMongoClient = &MongoDBClient{}
	return GlobalMongoClient.Connect()
}

// Connect establishes the connection and creates indexes
func (m *MongoDBClient) Connect() error {
	cfg := config.AppConfig

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.lastError = fmt.Sprintf("Failed to connect: %v", err)
		log.Printf("Failed to connect to MongoDB: %v", err)
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		m.lastError = fmt.Sprintf("Failed to ping: %v", err)
		log.Printf("Failed to ping MongoDB: %v", err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(cfg.MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	m.createIndexes()

	log.Println("MongoDB connected successfully")
	return nil
}

// IsConnected returns whether the client holds a live connection
func (m *MongoDBClient) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// Ping verifies the connection is still alive
func (m *MongoDBClient) Ping(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("MongoDB not connected")
	}
	return client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *MongoDBClient) Close() error {
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.client.Disconnect(ctx)
	}
	return nil
}

// createIndexes creates necessary indexes for collections
func (m *MongoDBClient) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alerts := m.database.Collection(MongoAlertCollection)
	alerts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "symbol", Value: 1}}},
		{Keys: bson.D{{Key: "active", Value: 1}}},
	})

	users := m.database.Collection(MongoUserCollection)
	users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	watchlist := m.database.Collection(MongoWatchlistCollection)
	watchlist.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "symbol", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	log.Println("MongoDB indexes created")
}

// ==================== Alert Operations ====================

// ListActiveAlerts returns all alerts with active=true
func (m *MongoDBClient) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	collection := m.database.Collection(MongoAlertCollection)

	cursor, err := collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	return alerts, nil
}

// ListAlertsByUser returns a user's alerts, optionally filtered by symbol
func (m *MongoDBClient) ListAlertsByUser(ctx context.Context, userID, symbol string) ([]models.Alert, error) {
	collection := m.database.Collection(MongoAlertCollection)

	filter := bson.M{"userId": userID}
	if symbol != "" {
		filter["symbol"] = models.NormalizeSymbol(symbol)
	}

	cursor, err := collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for user: %w", err)
	}
	defer cursor.Close(ctx)

	alerts := make([]models.Alert, 0)
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	return alerts, nil
}

// FindAlertByID loads a single alert
func (m *MongoDBClient) FindAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	collection := m.database.Collection(MongoAlertCollection)

	var alert models.Alert
	err = collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}

	return &alert, nil
}

// CreateAlert inserts a new alert and returns it with its assigned ID
func (m *MongoDBClient) CreateAlert(ctx context.Context, alert *models.Alert) error {
	collection := m.database.Collection(MongoAlertCollection)

	res, err := collection.InsertOne(ctx, alert)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		alert.ID = oid
	}
	return nil
}

// UpdateAlert applies a partial update to one of the user's alerts
func (m *MongoDBClient) UpdateAlert(ctx context.Context, id, userID string, update bson.M) (*models.Alert, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	collection := m.database.Collection(MongoAlertCollection)

	var alert models.Alert
	err = collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": userID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update alert %s: %w", id, err)
	}

	return &alert, nil
}

// DeleteAlert removes one of the user's alerts
func (m *MongoDBClient) DeleteAlert(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	collection := m.database.Collection(MongoAlertCollection)

	res, err := collection.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete alert %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLastTriggered advances the suppression timestamp for an alert.
// This is the only field the monitor ever writes.
func (m *MongoDBClient) SetLastTriggered(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	collection := m.database.Collection(MongoAlertCollection)

	res, err := collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"lastTriggeredAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to set lastTriggeredAt on alert %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneInactiveAlerts deletes inactive alerts untouched since the cutoff.
// Returns the number of removed documents.
func (m *MongoDBClient) PruneInactiveAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	collection := m.database.Collection(MongoAlertCollection)

	res, err := collection.DeleteMany(ctx, bson.M{
		"active":    false,
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune inactive alerts: %w", err)
	}
	return res.DeletedCount, nil
}

// ==================== User Operations ====================

// CreateUser inserts a new user
func (m *MongoDBClient) CreateUser(ctx context.Context, user *models.User) error {
	collection := m.database.Collection(MongoUserCollection)

	res, err := collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// FindUserByEmail loads a user by email address
func (m *MongoDBClient) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	collection := m.database.Collection(MongoUserCollection)

	var user models.User
	err := collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}

	return &user, nil
}

// ResolveContact maps an opaque user ID to the user's email address
func (m *MongoDBClient) ResolveContact(ctx context.Context, userID string) (string, error) {
	collection := m.database.Collection(MongoUserCollection)

	filter := bson.M{"_id": userID}
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		filter = bson.M{"_id": oid}
	}

	var doc struct {
		Email string `bson:"email"`
	}
	err := collection.FindOne(ctx, filter,
		options.FindOne().SetProjection(bson.M{"email": 1})).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve contact for user %s: %w", userID, err)
	}

	return doc.Email, nil
}

// ==================== Watchlist Operations ====================

// ListWatchlist returns all of a user's watchlist items
func (m *MongoDBClient) ListWatchlist(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	collection := m.database.Collection(MongoWatchlistCollection)

	cursor, err := collection.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "addedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.WatchlistItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist: %w", err)
	}

	return items, nil
}

// AddWatchlistItem upserts a symbol onto the user's watchlist
func (m *MongoDBClient) AddWatchlistItem(ctx context.Context, item *models.WatchlistItem) error {
	collection := m.database.Collection(MongoWatchlistCollection)

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx,
		bson.M{"userId": item.UserID, "symbol": item.Symbol},
		bson.M{
			"$set":         bson.M{"company": item.Company},
			"$setOnInsert": bson.M{"userId": item.UserID, "symbol": item.Symbol, "addedAt": item.AddedAt},
		},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to add %s to watchlist: %w", item.Symbol, err)
	}
	return nil
}

// RemoveWatchlistItem removes a symbol from the user's watchlist
func (m *MongoDBClient) RemoveWatchlistItem(ctx context.Context, userID, symbol string) error {
	collection := m.database.Collection(MongoWatchlistCollection)

	res, err := collection.DeleteOne(ctx, bson.M{"userId": userID, "symbol": models.NormalizeSymbol(symbol)})
	if err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
