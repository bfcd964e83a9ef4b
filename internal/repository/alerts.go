package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/geo"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

type mongoAlerts struct {
	coll *mongo.Collection
}

func (r *mongoAlerts) Create(ctx context.Context, a *models.Alert) (primitive.ObjectID, error) {
	const op = "repository.Alerts.Create"

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = models.AlertActive
	}
	a.Severity = models.NormalizeSeverity(string(a.Severity))

	res, err := r.coll.InsertOne(ctx, a)
	if err != nil {
		return primitive.NilObjectID, errs.Wrap(op, wrapMongo(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	a.ID = id
	return id, nil
}

func (r *mongoAlerts) Resolve(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	const op = "repository.Alerts.Resolve"

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":     models.AlertResolved,
		"resolvedAt": now,
	}}

	var alert models.Alert
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&alert)
	if err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return &alert, nil
}

func (r *mongoAlerts) ListActive(ctx context.Context, limit int) ([]models.Alert, error) {
	const op = "repository.Alerts.ListActive"
	return r.list(ctx, op, bson.M{"status": models.AlertActive}, limit)
}

func (r *mongoAlerts) ListActiveNear(ctx context.Context, center models.GeoPoint, radiusKm float64, limit int) ([]models.Alert, error) {
	const op = "repository.Alerts.ListActiveNear"

	filter := bson.M{
		"status":   models.AlertActive,
		"location": centerSphere(center, radiusKm),
	}
	return r.list(ctx, op, filter, limit)
}

func (r *mongoAlerts) HasExternalRef(ctx context.Context, ref string) (bool, error) {
	const op = "repository.Alerts.HasExternalRef"

	count, err := r.coll.CountDocuments(ctx, bson.M{"externalRef": ref},
		options.Count().SetLimit(1))
	if err != nil {
		return false, errs.Wrap(op, wrapMongo(err))
	}
	return count > 0, nil
}

func (r *mongoAlerts) list(ctx context.Context, op string, filter bson.M, limit int) ([]models.Alert, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	defer cur.Close(ctx)

	alerts := make([]models.Alert, 0, limit)
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return alerts, nil
}

// centerSphere builds the spherical-cap radius predicate; the radius is
// converted from kilometers to radians.
func centerSphere(center models.GeoPoint, radiusKm float64) bson.M {
	return bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{
				bson.A{center.Lng(), center.Lat()},
				radiusKm / geo.EarthRadiusKm,
			},
		},
	}
}

// wrapMongo translates driver errors into the shared taxonomy: missing
// documents become ErrNotFound, everything else is a backend failure.
func wrapMongo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}
	return fmt.Errorf("%w: %v", errs.ErrBackendUnavailable, err)
}
