// Package importer materializes external feed events as local alerts
// with "NASA Import" provenance, on operator request.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jaagratha/jaagratha-backend/internal/eonet"
	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/models"
	"github.com/jaagratha/jaagratha-backend/internal/repository"
	"github.com/jaagratha/jaagratha-backend/internal/worker"
)

// Feed is the import-side view of the external feed: unlike the
// aggregator it also wants the skip reasons, so an operator can see why
// an event is not importable.
type Feed interface {
	Fetch(ctx context.Context) ([]eonet.ParsedEvent, []eonet.SkippedEvent, error)
}

type Importer struct {
	feed   Feed
	alerts repository.AlertRepository
	pool   *worker.Pool
}

func New(feed Feed, alerts repository.AlertRepository, workers, buffer int) *Importer {
	imp := &Importer{feed: feed, alerts: alerts}
	imp.pool = worker.NewPool(workers, buffer, imp.process)
	return imp
}

func (i *Importer) Start(ctx context.Context) {
	i.pool.Start(ctx)
}

func (i *Importer) Stop() {
	i.pool.Stop()
}

// ImportEvent imports a single open event by feed id, synchronously.
// Re-importing an event that was already materialized is a conflict.
func (i *Importer) ImportEvent(ctx context.Context, eventID string) (*models.Alert, error) {
	const op = "importer.ImportEvent"

	events, _, err := i.feed.Fetch(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	for _, ev := range events {
		if ev.ID != eventID {
			continue
		}
		alert, err := i.materialize(ctx, ev)
		return alert, errs.Wrap(op, err)
	}
	return nil, fmt.Errorf("%s: event %q: %w", op, eventID, errs.ErrNotFound)
}

// BulkImport queues up to limit open events for import through the
// worker pool and returns how many were queued. Events already
// imported are filtered out by the processor, not here, so queueing
// stays cheap.
func (i *Importer) BulkImport(ctx context.Context, limit int) (int, error) {
	const op = "importer.BulkImport"

	events, skipped, err := i.feed.Fetch(ctx)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	for _, s := range skipped {
		slog.Debug("event not importable", "event_id", s.ID, "reason", s.Reason)
	}

	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}

	queued := 0
	for _, ev := range events[:limit] {
		if err := i.pool.Submit(ctx, ev); err != nil {
			return queued, errs.Wrap(op, err)
		}
		queued++
	}
	return queued, nil
}

func (i *Importer) process(ctx context.Context, job worker.Job) error {
	ev := job.(eonet.ParsedEvent)

	if _, err := i.materialize(ctx, ev); err != nil {
		if !errors.Is(err, errs.ErrConflict) {
			slog.Error("bulk import failed for event", "event_id", ev.ID, "error", err)
		}
		return err
	}
	return nil
}

func (i *Importer) materialize(ctx context.Context, ev eonet.ParsedEvent) (*models.Alert, error) {
	exists, err := i.alerts.HasExternalRef(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("event %q already imported: %w", ev.ID, errs.ErrConflict)
	}

	details := fmt.Sprintf("Imported from NASA EONET: %s.", ev.Title)
	if !ev.Date.IsZero() {
		details += " Last updated: " + ev.Date.Format(time.RFC1123)
	}

	alert := &models.Alert{
		Type:        localType(ev.Category),
		Title:       fmt.Sprintf("%s: %s", ev.Category, ev.Title),
		Details:     details,
		Location:    ev.Location,
		Severity:    ev.Severity,
		Status:      models.AlertActive,
		Source:      models.SourceNASAImport,
		ExternalRef: ev.ID,
	}

	if _, err := i.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	slog.Info("imported external event as alert", "event_id", ev.ID, "type", alert.Type)
	return alert, nil
}

// localType maps a feed category label onto the local incident type
// vocabulary.
func localType(category string) string {
	cat := strings.ToLower(category)
	switch {
	case strings.Contains(cat, "fire"):
		return string(models.ReportFire)
	case strings.Contains(cat, "flood"):
		return string(models.ReportFlood)
	case strings.Contains(cat, "storm"), strings.Contains(cat, "cyclone"), strings.Contains(cat, "hurricane"):
		return string(models.ReportStorm)
	case strings.Contains(cat, "earthquake"):
		return string(models.ReportEarthquake)
	case strings.Contains(cat, "landslide"):
		return string(models.ReportLandslide)
	default:
		return string(models.ReportOther)
	}
}
