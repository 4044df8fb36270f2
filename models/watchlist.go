package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WatchlistItem represents one symbol on a user's watchlist
type WatchlistItem struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  string             `bson:"userId" json:"user_id"`
	Symbol  string             `bson:"symbol" json:"symbol"`
	Company string             `bson:"company,omitempty" json:"company,omitempty"`
	AddedAt time.Time          `bson:"addedAt" json:"added_at"`
}
