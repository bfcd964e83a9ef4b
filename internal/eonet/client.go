// Package eonet adapts the NASA EONET open-events feed. The feed is
// third-party and schema-less, so every field is treated as optionally
// absent: each raw event parses into either a ParsedEvent or a
// SkippedEvent carrying the reason it was unusable.
package eonet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/models"
)

// EONET v2.1 category ids that map to high severity.
const (
	categoryWildfires    = 8
	categorySevereStorms = 10
	categoryVolcanoes    = 12
)

type ParsedEvent struct {
	ID       string
	Title    string
	Category string
	Severity models.Severity
	Location models.GeoPoint
	// Date is the timestamp of the geometry entry used, zero when the
	// feed omitted or mangled it.
	Date time.Time
}

type SkippedEvent struct {
	ID     string
	Reason string
}

type rawResponse struct {
	Events []rawEvent `json:"events"`
}

type rawEvent struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Categories  []rawCategory `json:"categories"`
	Geometries  []rawGeometry `json:"geometries"`
}

type rawCategory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type rawGeometry struct {
	Date string `json:"date"`
	// Coordinates is left raw: point events carry [lng, lat] but the
	// feed also emits polygons and occasionally junk.
	Coordinates json.RawMessage `json:"coordinates"`
}

// Client fetches and caches the open-events feed. The cache exists so
// the dashboard and map callers polling in lockstep don't hammer a
// third-party service; a fetch inside the TTL returns the cached parse.
type Client struct {
	url  string
	http *http.Client
	ttl  time.Duration

	mu        sync.Mutex
	cached    []ParsedEvent
	fetchedAt time.Time
}

func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		url:  cfg.URL,
		http: &http.Client{Timeout: cfg.Timeout},
		ttl:  cfg.CacheTTL,
	}
}

// OpenEvents returns the parsed open events, serving from cache inside
// the TTL. An error here means the feed is degraded; callers are
// expected to log and continue with an empty set.
func (c *Client) OpenEvents(ctx context.Context) ([]ParsedEvent, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		events := c.cached
		c.mu.Unlock()
		return events, nil
	}
	c.mu.Unlock()

	events, _, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = events
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return events, nil
}

// Fetch bypasses the cache and also reports what was skipped; the
// importer uses it so an operator sees why an event can't be imported.
func (c *Client) Fetch(ctx context.Context) ([]ParsedEvent, []SkippedEvent, error) {
	return c.fetch(ctx)
}

func (c *Client) fetch(ctx context.Context) ([]ParsedEvent, []SkippedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var data rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	parsed := make([]ParsedEvent, 0, len(data.Events))
	var skipped []SkippedEvent
	for _, ev := range data.Events {
		p, skip := parseEvent(ev)
		if skip != nil {
			skipped = append(skipped, *skip)
			continue
		}
		parsed = append(parsed, p)
	}

	return parsed, skipped, nil
}

// parseEvent validates one raw event exhaustively. The most recent
// geometry entry wins: a feed event may have moved or been updated.
func parseEvent(ev rawEvent) (ParsedEvent, *SkippedEvent) {
	if len(ev.Geometries) == 0 {
		return ParsedEvent{}, &SkippedEvent{ID: ev.ID, Reason: "no geometries"}
	}

	g := ev.Geometries[len(ev.Geometries)-1]

	var coords []float64
	if g.Coordinates == nil {
		return ParsedEvent{}, &SkippedEvent{ID: ev.ID, Reason: "missing coordinates"}
	}
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return ParsedEvent{}, &SkippedEvent{ID: ev.ID, Reason: "coordinates not a numeric pair"}
	}
	if len(coords) < 2 {
		return ParsedEvent{}, &SkippedEvent{ID: ev.ID, Reason: "coordinates too short"}
	}

	point := models.NewGeoPoint(coords[0], coords[1])
	if !point.Valid() {
		return ParsedEvent{}, &SkippedEvent{ID: ev.ID, Reason: "coordinates out of range"}
	}

	category, severity := classify(ev.Categories)

	var date time.Time
	if g.Date != "" {
		if t, err := time.Parse(time.RFC3339, g.Date); err == nil {
			date = t
		}
	}

	return ParsedEvent{
		ID:       ev.ID,
		Title:    ev.Title,
		Category: category,
		Severity: severity,
		Location: point,
		Date:     date,
	}, nil
}

// classify maps the feed's category vocabulary onto the canonical
// severity domain. Wildfires, volcanoes and severe storms are high;
// everything else, including an absent category, is moderate.
func classify(categories []rawCategory) (string, models.Severity) {
	if len(categories) == 0 {
		return "Unknown", models.SeverityModerate
	}

	c := categories[0]
	switch c.ID {
	case categoryWildfires, categoryVolcanoes, categorySevereStorms:
		return c.Title, models.SeverityHigh
	default:
		return c.Title, models.SeverityModerate
	}
}
