// Package lifecycle owns the report state machine and the alert-creation
// side effects its terminal transitions trigger.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jaagratha/jaagratha-backend/internal/errs"
	"github.com/jaagratha/jaagratha-backend/internal/models"
	"github.com/jaagratha/jaagratha-backend/internal/repository"
)

type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionResolve Action = "resolve"
	// ActionConfirm is the legacy shortcut: it materializes an active
	// alert directly from a pending report and deletes the report.
	ActionConfirm Action = "confirm"
)

// confirmed is a transient marker only ever held between the winning
// confirm transition and the report's deletion; it never appears in
// query results.
const confirmed models.ReportStatus = "confirmed"

type Engine struct {
	reports repository.ReportRepository
	alerts  repository.AlertRepository
}

func NewEngine(reports repository.ReportRepository, alerts repository.AlertRepository) *Engine {
	return &Engine{reports: reports, alerts: alerts}
}

// Transition applies one operator action to a report. Transitions that
// create an alert (resolve, confirm) are gated on an atomic conditional
// status update, so two concurrent calls on the same report produce at
// most one alert: the loser of the update race performs no side effect.
func (e *Engine) Transition(ctx context.Context, id primitive.ObjectID, action Action) error {
	const op = "lifecycle.Transition"

	report, err := e.reports.GetByID(ctx, id)
	if err != nil {
		return errs.Wrap(op, err)
	}

	switch action {
	case ActionAccept:
		// No alert yet; the report becomes an active incident in the
		// live view. Re-accepting an already accepted report is a no-op.
		_, err := e.reports.TransitionStatus(ctx, id,
			[]models.ReportStatus{models.ReportPending}, models.ReportAccepted)
		return errs.Wrap(op, err)

	case ActionReject:
		// The report is retained with a rejected marker, not deleted.
		_, err := e.reports.TransitionStatus(ctx, id,
			[]models.ReportStatus{models.ReportPending}, models.ReportRejected)
		return errs.Wrap(op, err)

	case ActionResolve:
		// Resolving a still-pending report is permitted (legacy
		// behavior), hence both statuses in the precondition.
		applied, err := e.reports.TransitionStatus(ctx, id,
			[]models.ReportStatus{models.ReportPending, models.ReportAccepted},
			models.ReportResolved)
		if err != nil {
			return errs.Wrap(op, err)
		}
		if !applied {
			// Lost the race or already resolved; no second alert.
			return nil
		}
		return errs.Wrap(op, e.createAlert(ctx, report, models.AlertResolved))

	case ActionConfirm:
		applied, err := e.reports.TransitionStatus(ctx, id,
			[]models.ReportStatus{models.ReportPending}, confirmed)
		if err != nil {
			return errs.Wrap(op, err)
		}
		if !applied {
			return nil
		}
		if err := e.createAlert(ctx, report, models.AlertActive); err != nil {
			return errs.Wrap(op, err)
		}
		if err := e.reports.Delete(ctx, id); err != nil {
			slog.Error("confirmed report not deleted", "report_id", id.Hex(), "error", err)
		}
		return nil

	default:
		return fmt.Errorf("%s: %q: %w", op, action, errs.ErrInvalidAction)
	}
}

func (e *Engine) createAlert(ctx context.Context, report *models.Report, status models.AlertStatus) error {
	alert := &models.Alert{
		Type:     string(report.Type),
		Title:    report.AlertTitle(),
		Details:  report.Details,
		Location: report.Location,
		Severity: models.SeverityModerate,
		Status:   status,
		Source:   models.SourceCitizenReport,
	}

	_, err := e.alerts.Create(ctx, alert)
	if err == nil {
		slog.Info("alert created from report",
			"report_id", report.ID.Hex(), "status", status, "type", report.Type)
	}
	return err
}
