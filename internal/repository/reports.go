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

type mongoReports struct {
	coll *mongo.Collection
}

func (r *mongoReports) Create(ctx context.Context, rep *models.Report) (primitive.ObjectID, error) {
	const op = "repository.Reports.Create"

	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	if rep.Status == "" {
		rep.Status = models.ReportPending
	}
	if rep.Priority == "" {
		rep.Priority = models.PriorityMedium
	}

	res, err := r.coll.InsertOne(ctx, rep)
	if err != nil {
		return primitive.NilObjectID, errs.Wrap(op, wrapMongo(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	rep.ID = id
	return id, nil
}

func (r *mongoReports) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	const op = "repository.Reports.GetByID"

	var rep models.Report
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return &rep, nil
}

func (r *mongoReports) ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.Report, error) {
	const op = "repository.Reports.ListByStatus"
	return r.list(ctx, op, bson.M{"status": status}, limit)
}

func (r *mongoReports) ListAcceptedNear(ctx context.Context, center models.GeoPoint, radiusKm float64, limit int) ([]models.Report, error) {
	const op = "repository.Reports.ListAcceptedNear"

	filter := bson.M{
		"status":   models.ReportAccepted,
		"location": centerSphere(center, radiusKm),
	}
	return r.list(ctx, op, filter, limit)
}

// TransitionStatus is the atomic conditional update the lifecycle engine
// builds its concurrency guarantee on: the update matches only when the
// current status is one of from, so exactly one of two racing callers
// observes applied=true.
func (r *mongoReports) TransitionStatus(ctx context.Context, id primitive.ObjectID, from []models.ReportStatus, next models.ReportStatus) (bool, error) {
	const op = "repository.Reports.TransitionStatus"

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": next}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errs.Wrap(op, wrapMongo(err))
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoReports) SetPriority(ctx context.Context, id primitive.ObjectID, p models.Priority) error {
	const op = "repository.Reports.SetPriority"

	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"priority": p}})
	if err != nil {
		return errs.Wrap(op, wrapMongo(err))
	}
	return nil
}

func (r *mongoReports) Delete(ctx context.Context, id primitive.ObjectID) error {
	const op = "repository.Reports.Delete"

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.Wrap(op, wrapMongo(err))
	}
	if res.DeletedCount == 0 {
		return errs.Wrap(op, errs.ErrNotFound)
	}
	return nil
}

func (r *mongoReports) list(ctx context.Context, op string, filter bson.M, limit int) ([]models.Report, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	defer cur.Close(ctx)

	reports := make([]models.Report, 0, limit)
	if err := cur.All(ctx, &reports); err != nil {
		return nil, errs.Wrap(op, wrapMongo(err))
	}
	return reports, nil
}
