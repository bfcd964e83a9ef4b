package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jaagratha/jaagratha-backend/internal/aggregator"
	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/eonet"
	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/lifecycle"
	"github.com/jaagratha/jaagratha-backend/internal/models"
	"github.com/jaagratha/jaagratha-backend/internal/priority"
	"github.com/jaagratha/jaagratha-backend/internal/registry"
	"github.com/jaagratha/jaagratha-backend/internal/repository"
)

const (
	defaultReportListLimit = 50
	maxReportListLimit     = 200

	classifyTimeout = 30 * time.Second
)

// FeedLister is the read side of the external feed used by the events
// endpoint.
type FeedLister interface {
	OpenEvents(ctx context.Context) ([]eonet.ParsedEvent, error)
}

// EventImporter materializes external feed events as alerts.
type EventImporter interface {
	ImportEvent(ctx context.Context, eventID string) (*models.Alert, error)
	BulkImport(ctx context.Context, limit int) (int, error)
}

// Deps carries everything the HTTP layer calls into.
type Deps struct {
	Alerts     repository.AlertRepository
	Reports    repository.ReportRepository
	Centers    repository.ReliefCenterRepository
	Aggregator *aggregator.Aggregator
	Engine     *lifecycle.Engine
	Feed       FeedLister
	Importer   EventImporter
	Classifier *priority.Classifier
	Sessions   *registry.Registry
	Query      config.QueryConfig
}

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, submitLimit gin.HandlerFunc) {
	r.GET("/health", h.health)

	apiGroup := r.Group("/api")
	apiGroup.GET("/alerts", h.listAlerts)
	apiGroup.POST("/alerts", h.createAlert)
	apiGroup.PATCH("/alerts/:id/resolve", h.resolveAlert)

	if submitLimit != nil {
		apiGroup.POST("/reports", submitLimit, h.submitReport)
	} else {
		apiGroup.POST("/reports", h.submitReport)
	}
	apiGroup.GET("/reports", h.listReports)
	apiGroup.PATCH("/reports/:id", h.transitionReport)

	apiGroup.GET("/relief-centers", h.listReliefCenters)
	apiGroup.POST("/relief-centers", h.createReliefCenter)
	apiGroup.DELETE("/relief-centers/:id", h.deleteReliefCenter)
	apiGroup.POST("/relief-centers/nearest", h.nearestReliefCenter)

	apiGroup.POST("/feed/sessions", h.acquireFeedSession)
	apiGroup.DELETE("/feed/sessions/:owner", h.releaseFeedSession)

	apiGroup.GET("/events", h.listEvents)
	apiGroup.POST("/events/import", h.importEvent)
	apiGroup.POST("/events/import/bulk", h.bulkImportEvents)

	apiGroup.POST("/debug/seed", h.seed)
}

// renderError maps the error taxonomy onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrBackendUnavailable):
		slog.Error("backend unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable"})
	default:
		slog.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func validCoords(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func parseObjectID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		renderError(c, errs.Validation("malformed id %q", c.Param("id")))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listAlerts(c *gin.Context) {
	q := aggregator.Query{Sort: aggregator.SortNewest}
	if c.Query("sort") == string(aggregator.SortDistance) {
		q.Sort = aggregator.SortDistance
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr == nil && lngErr == nil {
		if !validCoords(lat, lng) {
			renderError(c, errs.Validation("coordinates out of range"))
			return
		}
		q.Center = models.NewGeoPoint(lng, lat)
	}

	q.RadiusKm = h.deps.Query.DashboardRadiusKm
	if q.Sort == aggregator.SortDistance {
		q.RadiusKm = h.deps.Query.RescueRadiusKm
	}
	if r := c.Query("radiusKm"); r != "" {
		radius, err := strconv.ParseFloat(r, 64)
		if err != nil || radius <= 0 {
			renderError(c, errs.Validation("radiusKm must be a positive number"))
			return
		}
		q.RadiusKm = radius
	}

	records, err := h.deps.Aggregator.QueryNearby(c.Request.Context(), q)
	if err != nil {
		renderError(c, err)
		return
	}

	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, toGeoJSON(records))
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": records, "count": len(records)})
}

type createAlertRequest struct {
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Details  string  `json:"details"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Severity string  `json:"severity"`
	Source   string  `json:"source"`
}

func (h *Handler) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		renderError(c, errs.Validation("title is required"))
		return
	}
	if !validCoords(req.Lat, req.Lng) {
		renderError(c, errs.Validation("coordinates out of range"))
		return
	}

	severity := models.SeverityModerate
	if req.Severity != "" {
		switch s := models.Severity(req.Severity); s {
		case models.SeverityHigh, models.SeverityModerate, models.SeverityLow:
			severity = s
		default:
			renderError(c, errs.Validation("unknown severity %q", req.Severity))
			return
		}
	}

	alert := &models.Alert{
		Type:      req.Type,
		Title:     strings.TrimSpace(req.Title),
		Details:   req.Details,
		Location:  models.NewGeoPoint(req.Lng, req.Lat),
		Severity:  severity,
		Status:    models.AlertActive,
		Source:    req.Source,
		CreatedAt: time.Now().UTC(),
	}

	id, err := h.deps.Alerts.Create(c.Request.Context(), alert)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.Hex()})
}

func (h *Handler) resolveAlert(c *gin.Context) {
	id, ok := parseObjectID(c)
	if !ok {
		return
	}
	alert, err := h.deps.Alerts.Resolve(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

type submitReportRequest struct {
	Type        string  `json:"type"`
	Details     string  `json:"details"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	SubmittedBy string  `json:"submittedBy"`
}

func (h *Handler) submitReport(c *gin.Context) {
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if !models.ValidReportType(req.Type) {
		renderError(c, errs.Validation("unknown incident type %q", req.Type))
		return
	}
	details := strings.TrimSpace(req.Details)
	if len([]rune(details)) < models.MinReportDetailsLen {
		renderError(c, errs.Validation("details must be at least %d characters", models.MinReportDetailsLen))
		return
	}
	if !validCoords(req.Lat, req.Lng) {
		renderError(c, errs.Validation("coordinates out of range"))
		return
	}

	report := &models.Report{
		Type:      models.ReportType(req.Type),
		Details:   details,
		Location:  models.NewGeoPoint(req.Lng, req.Lat),
		Status:    models.ReportPending,
		Priority:  models.PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	if req.SubmittedBy != "" {
		if submitter, err := primitive.ObjectIDFromHex(req.SubmittedBy); err == nil {
			report.SubmittedBy = &submitter
		}
	}

	id, err := h.deps.Reports.Create(c.Request.Context(), report)
	if err != nil {
		renderError(c, err)
		return
	}

	// Classification happens after the report is persisted so a slow or
	// broken model never delays the submitter.
	if h.deps.Classifier != nil && h.deps.Classifier.Enabled() {
		go h.classifyReport(id, details)
	}

	c.JSON(http.StatusCreated, gin.H{"id": id.Hex(), "status": report.Status})
}

func (h *Handler) classifyReport(id primitive.ObjectID, details string) {
	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	p, err := h.deps.Classifier.Classify(ctx, details)
	if err != nil {
		slog.Warn("priority classification failed", "report", id.Hex(), "error", err)
		return
	}
	if err := h.deps.Reports.SetPriority(ctx, id, p); err != nil {
		slog.Warn("priority update failed", "report", id.Hex(), "error", err)
	}
}

func (h *Handler) listReports(c *gin.Context) {
	status := models.ReportPending
	if s := c.Query("status"); s != "" {
		switch rs := models.ReportStatus(s); rs {
		case models.ReportPending, models.ReportAccepted, models.ReportResolved, models.ReportRejected:
			status = rs
		default:
			renderError(c, errs.Validation("unknown status %q", s))
			return
		}
	}

	limit := defaultReportListLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxReportListLimit {
			limit = n
		}
	}

	reports, err := h.deps.Reports.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

type transitionRequest struct {
	Action string `json:"action"`
}

func (h *Handler) transitionReport(c *gin.Context) {
	id, ok := parseObjectID(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}

	if err := h.deps.Engine.Transition(c.Request.Context(), id, lifecycle.Action(req.Action)); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "action": req.Action})
}

func (h *Handler) listReliefCenters(c *gin.Context) {
	centers, err := h.deps.Centers.List(c.Request.Context(), 100)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reliefCenters": centers, "count": len(centers)})
}

type createReliefCenterRequest struct {
	Name    string  `json:"name"`
	Details string  `json:"details"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (h *Handler) createReliefCenter(c *gin.Context) {
	var req createReliefCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		renderError(c, errs.Validation("name is required"))
		return
	}
	if !validCoords(req.Lat, req.Lng) {
		renderError(c, errs.Validation("coordinates out of range"))
		return
	}

	center := &models.ReliefCenter{
		Name:      strings.TrimSpace(req.Name),
		Details:   req.Details,
		Location:  models.NewGeoPoint(req.Lng, req.Lat),
		CreatedAt: time.Now().UTC(),
	}
	id, err := h.deps.Centers.Create(c.Request.Context(), center)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.Hex()})
}

func (h *Handler) deleteReliefCenter(c *gin.Context) {
	id, ok := parseObjectID(c)
	if !ok {
		return
	}
	if err := h.deps.Centers.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.Hex()})
}

type nearestRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *Handler) nearestReliefCenter(c *gin.Context) {
	var req nearestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if !validCoords(req.Lat, req.Lng) {
		renderError(c, errs.Validation("coordinates out of range"))
		return
	}

	center, err := h.deps.Centers.Nearest(c.Request.Context(), models.NewGeoPoint(req.Lng, req.Lat))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, center)
}

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.deps.Feed.OpenEvents(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

type importRequest struct {
	EventID string `json:"eventId"`
}

func (h *Handler) importEvent(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if req.EventID == "" {
		renderError(c, errs.Validation("eventId is required"))
		return
	}

	alert, err := h.deps.Importer.ImportEvent(c.Request.Context(), req.EventID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

type bulkImportRequest struct {
	Limit int `json:"limit"`
}

func (h *Handler) bulkImportEvents(c *gin.Context) {
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	queued, err := h.deps.Importer.BulkImport(c.Request.Context(), req.Limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (h *Handler) seed(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	alerts := []models.Alert{
		{
			Type: "flood", Title: "River overflow near Aluva",
			Details:  "Periyar crossing danger mark, low-lying wards flooding.",
			Location: models.NewGeoPoint(76.3516, 10.1076),
			Severity: models.SeverityHigh, Status: models.AlertActive,
			Source: models.SourceManual, CreatedAt: now,
		},
		{
			Type: "landslide", Title: "Slope failure on Munnar road",
			Details:  "Single lane blocked, crews on site.",
			Location: models.NewGeoPoint(77.0595, 10.0889),
			Severity: models.SeverityModerate, Status: models.AlertActive,
			Source: models.SourceManual, CreatedAt: now,
		},
		{
			Type: "storm", Title: "Coastal wind warning",
			Details:  "Fishing advisories in effect until tomorrow evening.",
			Location: models.NewGeoPoint(76.2673, 9.9312),
			Severity: models.SeverityLow, Status: models.AlertActive,
			Source: models.SourceManual, CreatedAt: now,
		},
	}
	centers := []models.ReliefCenter{
		{
			Name: "Ernakulam Town Hall", Details: "Capacity 400, medical desk",
			Location: models.NewGeoPoint(76.2830, 9.9845), CreatedAt: now,
		},
		{
			Name: "Aluva UC College", Details: "Capacity 250",
			Location: models.NewGeoPoint(76.3410, 10.1130), CreatedAt: now,
		},
	}

	inserted := 0
	for i := range alerts {
		if _, err := h.deps.Alerts.Create(ctx, &alerts[i]); err != nil {
			renderError(c, err)
			return
		}
		inserted++
	}
	for i := range centers {
		if _, err := h.deps.Centers.Create(ctx, &centers[i]); err != nil {
			renderError(c, err)
			return
		}
		inserted++
	}
	c.JSON(http.StatusCreated, gin.H{"inserted": inserted})
}
