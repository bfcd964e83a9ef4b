package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReliefCenter is a fixed facility. No status field: all centers are
// assumed available.
type ReliefCenter struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Details   string             `bson:"details,omitempty" json:"details,omitempty"`
	Location  GeoPoint           `bson:"location" json:"location"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
