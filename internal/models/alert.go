package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// NormalizeSeverity coerces any upstream severity vocabulary into the
// canonical three-value domain. Unknown or empty input becomes moderate.
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityHigh, SeverityModerate, SeverityLow:
		return Severity(s)
	}
	switch s {
	case "critical":
		return SeverityHigh
	case "medium":
		return SeverityModerate
	}
	return SeverityModerate
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Well-known provenance tags. Source is free text; these are the values
// this system writes itself.
const (
	SourceManual        = "Manual Alert"
	SourceCitizenReport = "Citizen Report (Verified)"
	SourceNASAImport    = "NASA Import"
)

// Alert is an active or resolved hazard notice, either operator-authored
// or materialized from an accepted citizen report or an external event.
type Alert struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        string             `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Details     string             `bson:"details" json:"details"`
	Location    GeoPoint           `bson:"location" json:"location"`
	Severity    Severity           `bson:"severity" json:"severity"`
	Status      AlertStatus        `bson:"status" json:"status"`
	Source      string             `bson:"source,omitempty" json:"source,omitempty"`
	ExternalRef string             `bson:"externalRef,omitempty" json:"externalRef,omitempty"`
	ResolvedAt  *time.Time         `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
