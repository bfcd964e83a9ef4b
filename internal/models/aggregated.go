package models

import "time"

// AggregatedRecord is the common shape produced by merging local alerts,
// verified citizen reports and external feed events for one query
// response. DistanceKm is nil when the query ran without a center.
type AggregatedRecord struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Details    string    `json:"details,omitempty"`
	Location   GeoPoint  `json:"location"`
	Severity   Severity  `json:"severity"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	DistanceKm *float64  `json:"distanceKm,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
