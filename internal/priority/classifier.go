package priority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

// Classifier assigns a priority to citizen report text using a hosted
// zero-shot classification model. When no API token is configured the
// classifier is disabled and every report gets medium priority.
type Classifier struct {
	url   string
	token string
	http  *http.Client
}

func NewClassifier(cfg config.PriorityConfig) *Classifier {
	return &Classifier{
		url:   cfg.URL,
		token: cfg.Token,
		http:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether an API token is configured.
func (c *Classifier) Enabled() bool {
	return c.token != ""
}

var candidateLabels = []string{"high priority", "medium priority", "low priority"}

type inferenceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
	} `json:"parameters"`
}

type inferenceResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify returns the priority for the given report text. On any
// failure it returns medium priority alongside the error so callers
// can persist a usable value and log the cause.
func (c *Classifier) Classify(ctx context.Context, text string) (models.Priority, error) {
	if !c.Enabled() {
		return models.PriorityMedium, nil
	}

	var req inferenceRequest
	req.Inputs = text
	req.Parameters.CandidateLabels = candidateLabels
	body, err := json.Marshal(req)
	if err != nil {
		return models.PriorityMedium, errs.Wrap("priority.Classify", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.PriorityMedium, errs.Wrap("priority.Classify", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return models.PriorityMedium, errs.Wrap("priority.Classify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PriorityMedium, errs.Wrap("priority.Classify",
			fmt.Errorf("inference API returned %d", resp.StatusCode))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PriorityMedium, errs.Wrap("priority.Classify", err)
	}

	return pickLabel(out), nil
}

func pickLabel(out inferenceResponse) models.Priority {
	if len(out.Labels) == 0 || len(out.Scores) == 0 {
		return models.PriorityMedium
	}
	best := 0
	for i := 1; i < len(out.Scores) && i < len(out.Labels); i++ {
		if out.Scores[i] > out.Scores[best] {
			best = i
		}
	}
	label := out.Labels[best]
	switch {
	case strings.Contains(label, "high"):
		return models.PriorityHigh
	case strings.Contains(label, "low"):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}
