package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaagratha/jaagratha-backend/internal/config"
)

const (
	alertsCollection        = "alerts"
	reportsCollection       = "reports"
	reliefCentersCollection = "reliefcenters"
)

// MongoDB wraps the client and owns the repository implementations.
type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoDB(ctx context.Context, cfg config.MongoConfig) (*MongoDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("error pinging mongodb: %w", err)
	}

	m := &MongoDB{
		client: client,
		db:     client.Database(cfg.Database),
	}
	if err := m.ensureIndexes(connectCtx); err != nil {
		return nil, fmt.Errorf("error creating indexes: %w", err)
	}

	return m, nil
}

// ensureIndexes creates the 2dsphere indexes every geo query depends on,
// plus the lookup indexes for status filters and import dedupe.
func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	geo := mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}}

	for _, coll := range []string{alertsCollection, reportsCollection, reliefCentersCollection} {
		if _, err := m.db.Collection(coll).Indexes().CreateOne(ctx, geo); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}

	_, err := m.db.Collection(alertsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "externalRef", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "externalRef", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	})
	if err != nil {
		return err
	}

	_, err = m.db.Collection(reportsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (m *MongoDB) Alerts() AlertRepository {
	return &mongoAlerts{coll: m.db.Collection(alertsCollection)}
}

func (m *MongoDB) Reports() ReportRepository {
	return &mongoReports{coll: m.db.Collection(reportsCollection)}
}

func (m *MongoDB) ReliefCenters() ReliefCenterRepository {
	return &mongoReliefCenters{coll: m.db.Collection(reliefCentersCollection)}
}

func (m *MongoDB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
