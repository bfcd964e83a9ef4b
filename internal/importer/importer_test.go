package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"

	"github.com/jaagratha/jaagratha-backend/internal/eonet"
	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFeed struct {
	events  []eonet.ParsedEvent
	skipped []eonet.SkippedEvent
	err     error
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]eonet.ParsedEvent, []eonet.SkippedEvent, error) {
	return f.events, f.skipped, f.err
}

type memAlerts struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (m *memAlerts) Create(ctx context.Context, a *models.Alert) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = primitive.NewObjectID()
	m.alerts = append(m.alerts, *a)
	return a.ID, nil
}

func (m *memAlerts) Resolve(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	return nil, errs.ErrNotFound
}

func (m *memAlerts) ListActive(ctx context.Context, limit int) ([]models.Alert, error) {
	return nil, nil
}

func (m *memAlerts) ListActiveNear(ctx context.Context, center models.GeoPoint, radiusKm float64, limit int) ([]models.Alert, error) {
	return nil, nil
}

func (m *memAlerts) HasExternalRef(ctx context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ExternalRef == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAlerts) snapshot() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Alert(nil), m.alerts...)
}

func wildfire() eonet.ParsedEvent {
	return eonet.ParsedEvent{
		ID:       "EONET_42",
		Title:    "Wildfire - Attica",
		Category: "Wildfires",
		Severity: models.SeverityHigh,
		Location: models.NewGeoPoint(23.7, 38.0),
		Date:     time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
	}
}

func TestImportEvent_MaterializesAlert(t *testing.T) {
	alerts := &memAlerts{}
	imp := New(&fakeFeed{events: []eonet.ParsedEvent{wildfire()}}, alerts, 1, 4)

	alert, err := imp.ImportEvent(context.Background(), "EONET_42")
	if err != nil {
		t.Fatalf("ImportEvent: %v", err)
	}

	if alert.Source != models.SourceNASAImport {
		t.Errorf("source = %q, want NASA Import", alert.Source)
	}
	if alert.Type != "fire" {
		t.Errorf("type = %q, want fire", alert.Type)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", alert.Severity)
	}
	if alert.Status != models.AlertActive {
		t.Errorf("status = %q, want active", alert.Status)
	}
	if alert.ExternalRef != "EONET_42" {
		t.Errorf("externalRef = %q", alert.ExternalRef)
	}
	if alert.Title != "Wildfires: Wildfire - Attica" {
		t.Errorf("title = %q", alert.Title)
	}
}

func TestImportEvent_UnknownID(t *testing.T) {
	imp := New(&fakeFeed{events: []eonet.ParsedEvent{wildfire()}}, &memAlerts{}, 1, 4)

	_, err := imp.ImportEvent(context.Background(), "EONET_999")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestImportEvent_DuplicateIsConflict(t *testing.T) {
	alerts := &memAlerts{}
	imp := New(&fakeFeed{events: []eonet.ParsedEvent{wildfire()}}, alerts, 1, 4)

	if _, err := imp.ImportEvent(context.Background(), "EONET_42"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	_, err := imp.ImportEvent(context.Background(), "EONET_42")
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("second import err = %v, want ErrConflict", err)
	}
	if len(alerts.snapshot()) != 1 {
		t.Errorf("duplicate import created a second alert")
	}
}

func TestBulkImport_QueuesThroughPool(t *testing.T) {
	events := []eonet.ParsedEvent{wildfire()}
	events = append(events, eonet.ParsedEvent{
		ID: "EONET_43", Title: "Flooding - Mekong Delta", Category: "Floods",
		Severity: models.SeverityModerate, Location: models.NewGeoPoint(105.8, 10.0),
	})

	alerts := &memAlerts{}
	imp := New(&fakeFeed{events: events}, alerts, 2, 8)

	ctx := context.Background()
	imp.Start(ctx)

	queued, err := imp.BulkImport(ctx, 5)
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if queued != 2 {
		t.Errorf("queued = %d, want 2", queued)
	}

	// Stop drains the queue before the workers exit.
	imp.Stop()

	got := alerts.snapshot()
	if len(got) != 2 {
		t.Fatalf("materialized %d alerts, want 2", len(got))
	}
	types := map[string]bool{}
	for _, a := range got {
		types[a.Type] = true
	}
	if !types["fire"] || !types["flood"] {
		t.Errorf("unexpected alert types: %v", types)
	}
}

func TestBulkImport_FeedFailure(t *testing.T) {
	imp := New(&fakeFeed{err: errors.New("eonet down")}, &memAlerts{}, 1, 4)

	if _, err := imp.BulkImport(context.Background(), 5); err == nil {
		t.Fatal("expected error when the feed is unreachable")
	}
}
