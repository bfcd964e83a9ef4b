package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

// Integration tests run against a real MongoDB; set MONGO_TEST_URI to
// enable them, e.g. MONGO_TEST_URI=mongodb://localhost:27017.
func testDB(t *testing.T) *MongoDB {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := NewMongoDB(ctx, config.MongoConfig{
		URI:      uri,
		Database: fmt.Sprintf("jaagratha_test_%d", time.Now().UnixNano()),
		Timeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("connecting to test mongo: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.db.Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}

func TestAlerts_RadiusQuery(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alerts := db.Alerts()

	near := &models.Alert{
		Type: "flood", Title: "Periyar overflowing",
		Location: models.NewGeoPoint(77.087, 10.089),
		Severity: models.SeverityHigh,
	}
	far := &models.Alert{
		Type: "storm", Title: "Delhi dust storm",
		Location: models.NewGeoPoint(77.209, 28.614),
		Severity: models.SeverityModerate,
	}
	for _, a := range []*models.Alert{near, far} {
		if _, err := alerts.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	center := models.NewGeoPoint(76.628, 10.068)
	got, err := alerts.ListActiveNear(ctx, center, 150, AlertQueryLimit)
	if err != nil {
		t.Fatalf("ListActiveNear: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Periyar overflowing" {
		t.Errorf("expected only the nearby alert, got %d results", len(got))
	}
}

func TestAlerts_ResolveExcludedFromActive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alerts := db.Alerts()

	a := &models.Alert{Type: "fire", Title: "Brush fire", Location: models.NewGeoPoint(76.6, 10.1)}
	id, err := alerts.Create(ctx, a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := alerts.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.AlertResolved || resolved.ResolvedAt == nil {
		t.Errorf("resolve did not stamp status/resolvedAt: %+v", resolved)
	}

	active, err := alerts.ListActive(ctx, AlertQueryLimit)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("resolved alert still listed as active")
	}
}

func TestReports_TransitionStatusIsAtomic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	reports := db.Reports()

	rep := &models.Report{
		Type:     models.ReportFlood,
		Details:  "water rising near the bridge",
		Location: models.NewGeoPoint(76.628, 10.068),
		Status:   models.ReportAccepted,
	}
	id, err := reports.Create(ctx, rep)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 8
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := reports.TransitionStatus(ctx, id,
				[]models.ReportStatus{models.ReportPending, models.ReportAccepted},
				models.ReportResolved)
			if err != nil {
				t.Errorf("transition: %v", err)
				return
			}
			if applied {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one applied transition, got %d", wins)
	}
}

func TestReliefCenters_Nearest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	centers := db.ReliefCenters()

	if _, err := centers.Nearest(ctx, models.NewGeoPoint(76.628, 10.068)); err == nil {
		t.Error("expected ErrNotFound with no centers")
	}

	town := &models.ReliefCenter{Name: "Town Hall", Location: models.NewGeoPoint(76.63, 10.07)}
	remote := &models.ReliefCenter{Name: "Hill Camp", Location: models.NewGeoPoint(77.2, 28.6)}
	for _, rc := range []*models.ReliefCenter{town, remote} {
		if _, err := centers.Create(ctx, rc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := centers.Nearest(ctx, models.NewGeoPoint(76.628, 10.068))
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if got.Name != "Town Hall" {
		t.Errorf("nearest = %q, want Town Hall", got.Name)
	}
}
