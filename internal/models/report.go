package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportType string

const (
	ReportFlood      ReportType = "flood"
	ReportFire       ReportType = "fire"
	ReportLandslide  ReportType = "landslide"
	ReportAccident   ReportType = "accident"
	ReportMedical    ReportType = "medical"
	ReportEarthquake ReportType = "earthquake"
	ReportStorm      ReportType = "storm"
	ReportOther      ReportType = "other"
)

func ValidReportType(t string) bool {
	switch ReportType(t) {
	case ReportFlood, ReportFire, ReportLandslide, ReportAccident,
		ReportMedical, ReportEarthquake, ReportStorm, ReportOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportAccepted ReportStatus = "accepted"
	ReportResolved ReportStatus = "resolved"
	ReportRejected ReportStatus = "rejected"
)

// Priority is derived from the report text at submission time and is
// informational only; it never gates a lifecycle transition.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PrioritySeverity maps a report priority into the alert severity domain.
func PrioritySeverity(p Priority) Severity {
	switch p {
	case PriorityCritical, PriorityHigh:
		return SeverityHigh
	case PriorityMedium:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

const MinReportDetailsLen = 10

// Report is a citizen-submitted incident awaiting operator action.
type Report struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Type        ReportType          `bson:"type" json:"type"`
	Details     string              `bson:"details" json:"details"`
	Location    GeoPoint            `bson:"location" json:"location"`
	SubmittedBy *primitive.ObjectID `bson:"submittedBy,omitempty" json:"submittedBy,omitempty"`
	Status      ReportStatus        `bson:"status" json:"status"`
	Priority    Priority            `bson:"priority" json:"priority"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// AlertTitle derives the title used when a report is materialized as an
// alert: the first 80 characters of the trimmed details.
func (r *Report) AlertTitle() string {
	details := strings.TrimSpace(r.Details)
	if details == "" {
		return "Citizen report: " + string(r.Type)
	}
	if runes := []rune(details); len(runes) > 80 {
		return string(runes[:80])
	}
	return details
}
