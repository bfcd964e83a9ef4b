// Package aggregator merges local alerts, verified citizen reports and
// the external feed into one ranked view of what is happening near a
// location.
package aggregator

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jaagratha/jaagratha-backend/internal/eonet"
	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/geo"
	"github.com/jaagratha/jaagratha-backend/internal/models"
	"github.com/jaagratha/jaagratha-backend/internal/repository"
)

// MaxRecords caps the merged result; per-source sub-limits are applied
// before the merge (repository.AlertQueryLimit, ReportQueryLimit).
const MaxRecords = 50

// ExternalSource tags feed-origin records.
const ExternalSource = "NASA EONET"

type Sort string

const (
	// SortNewest orders by creation timestamp descending (dashboard).
	SortNewest Sort = "newest"
	// SortDistance orders by distance ascending (nearby panel); falls
	// back to newest when the query has no center.
	SortDistance Sort = "distance"
)

// FeedSource is the read side of the external feed adapter. A failure
// here degrades the result instead of failing it.
type FeedSource interface {
	OpenEvents(ctx context.Context) ([]eonet.ParsedEvent, error)
}

type Query struct {
	Center   models.GeoPoint
	RadiusKm float64
	Sort     Sort
}

type Aggregator struct {
	alerts  repository.AlertRepository
	reports repository.ReportRepository
	feed    FeedSource
}

func New(alerts repository.AlertRepository, reports repository.ReportRepository, feed FeedSource) *Aggregator {
	return &Aggregator{alerts: alerts, reports: reports, feed: feed}
}

// QueryNearby fans out to the three sources concurrently, waits for all
// of them to settle, and merges. Store failures fail the whole call;
// a feed failure is logged and the external set is empty.
func (a *Aggregator) QueryNearby(ctx context.Context, q Query) ([]models.AggregatedRecord, error) {
	const op = "aggregator.QueryNearby"

	// A missing or (0,0) center means "all active records": no radius
	// filter anywhere, no distance annotation.
	hasCenter := q.Center.Valid() && !q.Center.Zero()

	var (
		alerts  []models.Alert
		reports []models.Report
		events  []eonet.ParsedEvent
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if hasCenter {
			alerts, err = a.alerts.ListActiveNear(gctx, q.Center, q.RadiusKm, repository.AlertQueryLimit)
		} else {
			alerts, err = a.alerts.ListActive(gctx, repository.AlertQueryLimit)
		}
		return err
	})

	g.Go(func() error {
		var err error
		if hasCenter {
			reports, err = a.reports.ListAcceptedNear(gctx, q.Center, q.RadiusKm, repository.ReportQueryLimit)
		} else {
			reports, err = a.reports.ListByStatus(gctx, models.ReportAccepted, repository.ReportQueryLimit)
		}
		return err
	})

	g.Go(func() error {
		evs, err := a.feed.OpenEvents(gctx)
		if err != nil {
			// Feed outages must never fail the aggregation.
			slog.Warn("external feed degraded, continuing without it", "error", err)
			return nil
		}
		events = evs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, errs.Wrap(op, err)
	}

	records := make([]models.AggregatedRecord, 0, len(alerts)+len(reports)+len(events))
	for _, al := range alerts {
		records = append(records, a.fromAlert(al, q, hasCenter))
	}
	for _, rep := range reports {
		records = append(records, a.fromReport(rep, q, hasCenter))
	}
	for _, ev := range events {
		rec, ok := a.fromEvent(ev, q, hasCenter)
		if ok {
			records = append(records, rec)
		}
	}

	sortRecords(records, q.Sort, hasCenter)

	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	return records, nil
}

func (a *Aggregator) fromAlert(al models.Alert, q Query, hasCenter bool) models.AggregatedRecord {
	source := al.Source
	if source == "" {
		source = models.SourceManual
	}
	return models.AggregatedRecord{
		ID:         al.ID.Hex(),
		Type:       al.Type,
		Title:      al.Title,
		Details:    al.Details,
		Location:   al.Location,
		Severity:   al.Severity,
		Status:     string(al.Status),
		Source:     source,
		DistanceKm: distanceFrom(q.Center, al.Location, hasCenter),
		CreatedAt:  al.CreatedAt,
	}
}

func (a *Aggregator) fromReport(rep models.Report, q Query, hasCenter bool) models.AggregatedRecord {
	return models.AggregatedRecord{
		ID:         rep.ID.Hex(),
		Type:       string(rep.Type),
		Title:      string(rep.Type) + " Report - VERIFIED",
		Details:    rep.Details,
		Location:   rep.Location,
		Severity:   models.PrioritySeverity(rep.Priority),
		Status:     string(models.AlertActive),
		Source:     models.SourceCitizenReport,
		DistanceKm: distanceFrom(q.Center, rep.Location, hasCenter),
		CreatedAt:  rep.CreatedAt,
	}
}

// fromEvent applies the radius filter the stores did natively: feed
// events outside the radius are dropped here.
func (a *Aggregator) fromEvent(ev eonet.ParsedEvent, q Query, hasCenter bool) (models.AggregatedRecord, bool) {
	dist := distanceFrom(q.Center, ev.Location, hasCenter)
	if hasCenter && *dist > q.RadiusKm {
		return models.AggregatedRecord{}, false
	}
	return models.AggregatedRecord{
		ID:         ev.ID,
		Type:       ev.Category,
		Title:      ev.Title,
		Location:   ev.Location,
		Severity:   ev.Severity,
		Status:     string(models.AlertActive),
		Source:     ExternalSource,
		DistanceKm: dist,
		CreatedAt:  ev.Date,
	}, true
}

func distanceFrom(center, point models.GeoPoint, hasCenter bool) *float64 {
	if !hasCenter {
		return nil
	}
	d := geo.HaversineKm(center.Lat(), center.Lng(), point.Lat(), point.Lng())
	return &d
}

func sortRecords(records []models.AggregatedRecord, by Sort, hasCenter bool) {
	if by == SortDistance && hasCenter {
		sort.SliceStable(records, func(i, j int) bool {
			return *records[i].DistanceKm < *records[j].DistanceKm
		})
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
