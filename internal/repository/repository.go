package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jaagratha/jaagratha-backend/internal/models"
)

// Sub-limits applied per DB-backed source before the aggregator merges,
// bounding worst-case payload size.
const (
	AlertQueryLimit  = 25
	ReportQueryLimit = 25
)

type AlertRepository interface {
	Create(ctx context.Context, a *models.Alert) (primitive.ObjectID, error)
	// Resolve flips status to resolved and stamps resolvedAt. Returns the
	// updated alert, or ErrNotFound.
	Resolve(ctx context.Context, id primitive.ObjectID) (*models.Alert, error)
	// ListActive returns active alerts newest-first, up to limit.
	ListActive(ctx context.Context, limit int) ([]models.Alert, error)
	// ListActiveNear returns active alerts within radiusKm of center,
	// using the store's native spherical-cap predicate.
	ListActiveNear(ctx context.Context, center models.GeoPoint, radiusKm float64, limit int) ([]models.Alert, error)
	// HasExternalRef reports whether an alert materialized from the
	// external feed already exists for ref.
	HasExternalRef(ctx context.Context, ref string) (bool, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.Report, error)
	ListAcceptedNear(ctx context.Context, center models.GeoPoint, radiusKm float64, limit int) ([]models.Report, error)
	// TransitionStatus atomically moves the report from one of the
	// expected statuses to next. It returns false with a nil error when
	// the report exists but its status did not match, which is how a
	// concurrent duplicate transition loses the race.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from []models.ReportStatus, next models.ReportStatus) (bool, error)
	SetPriority(ctx context.Context, id primitive.ObjectID, p models.Priority) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ReliefCenterRepository interface {
	Create(ctx context.Context, rc *models.ReliefCenter) (primitive.ObjectID, error)
	List(ctx context.Context, limit int) ([]models.ReliefCenter, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Nearest returns the closest center to point with no radius cap,
	// or ErrNotFound when no centers exist.
	Nearest(ctx context.Context, point models.GeoPoint) (*models.ReliefCenter, error)
}
