package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

type mongoReliefCenters struct {
	coll *mongo.Collection
}

func (r *mongoReliefCenters) Create(ctx context.Context, rc *models.ReliefCenter) (primitive.ObjectID, error) {
	const op = "repository.ReliefCenters.Create"

	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, rc)
	if err != nil {
		return primitive.NilObjectID, errs.Wrap(op, wrapMongo(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	rc.ID = id
	return id, nil
}

func (r *mongoReliefCenters) List(ctx context.Context, limit int) ([]models.ReliefCenter, error) {
	const op = "repository.ReliefCenters.List"

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	defer cur.Close(ctx)

	centers := make([]models.ReliefCenter, 0, limit)
	if err := cur.All(ctx, &centers); err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return centers, nil
}

func (r *mongoReliefCenters) Delete(ctx context.Context, id primitive.ObjectID) error {
	const op = "repository.ReliefCenters.Delete"

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.Wrap(op, wrapMongo(err))
	}
	if res.DeletedCount == 0 {
		return errs.Wrap(op, errs.ErrNotFound)
	}
	return nil
}

// Nearest relies on the 2dsphere index: $near with no $maxDistance
// always returns the closest center when any exist.
func (r *mongoReliefCenters) Nearest(ctx context.Context, point models.GeoPoint) (*models.ReliefCenter, error) {
	const op = "repository.ReliefCenters.Nearest"

	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{point.Lng(), point.Lat()},
				},
			},
		},
	}

	var center models.ReliefCenter
	if err := r.coll.FindOne(ctx, filter).Decode(&center); err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return &center, nil
}
