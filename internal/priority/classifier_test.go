package priority

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

func newTestClassifier(url, token string) *Classifier {
	return NewClassifier(config.PriorityConfig{
		URL:     url,
		Token:   token,
		Timeout: 2 * time.Second,
	})
}

func TestClassifyDisabledWithoutToken(t *testing.T) {
	c := newTestClassifier("http://unused.invalid", "")
	if c.Enabled() {
		t.Fatal("classifier without token should be disabled")
	}
	got, err := c.Classify(context.Background(), "massive flooding downtown")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", got)
	}
}

func TestClassifyPicksHighestScore(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req inferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Parameters.CandidateLabels) != 3 {
			t.Errorf("candidate labels = %v", req.Parameters.CandidateLabels)
		}
		json.NewEncoder(w).Encode(inferenceResponse{
			Labels: []string{"low priority", "high priority", "medium priority"},
			Scores: []float64{0.1, 0.7, 0.2},
		})
	}))
	defer srv.Close()

	c := newTestClassifier(srv.URL, "test-token")
	got, err := c.Classify(context.Background(), "building collapsed, people trapped")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.PriorityHigh {
		t.Errorf("priority = %q, want high", got)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClassifyLowLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferenceResponse{
			Labels: []string{"low priority", "medium priority", "high priority"},
			Scores: []float64{0.8, 0.15, 0.05},
		})
	}))
	defer srv.Close()

	c := newTestClassifier(srv.URL, "tok")
	got, err := c.Classify(context.Background(), "streetlight flickering")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.PriorityLow {
		t.Errorf("priority = %q, want low", got)
	}
}

func TestClassifyFallsBackToMediumOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClassifier(srv.URL, "tok")
	got, err := c.Classify(context.Background(), "some report text goes here")
	if err == nil {
		t.Fatal("expected error from 503 response")
	}
	if got != models.PriorityMedium {
		t.Errorf("priority = %q, want medium fallback", got)
	}
}

func TestClassifyEmptyScoresDefaultsMedium(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferenceResponse{})
	}))
	defer srv.Close()

	c := newTestClassifier(srv.URL, "tok")
	got, err := c.Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", got)
	}
}
