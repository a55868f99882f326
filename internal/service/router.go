package service

import (
	"context"

	"roomcast/internal/models"

	"github.com/sirupsen/logrus"
)

// EventRouter walks the webhook envelope's entries and changes and
// dispatches inbound messages, status callbacks and platform error notices
// independently. One event's failure never blocks the others; the summary
// carries a result per event and the HTTP response stays 200 regardless.
type EventRouter struct {
	ingest *IngestService
	status *StatusTracker
	logger *logrus.Logger
}

func NewEventRouter(ingest *IngestService, status *StatusTracker, logger *logrus.Logger) *EventRouter {
	return &EventRouter{
		ingest: ingest,
		status: status,
		logger: logger,
	}
}

// Route processes every event embedded in the payload, in order, and
// aggregates the per-event results.
func (r *EventRouter) Route(ctx context.Context, payload *models.WebhookPayload) *models.WebhookSummary {
	summary := &models.WebhookSummary{
		Success: true,
		Results: make([]models.EventResult, 0),
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != models.ChangeFieldMessages {
				r.logger.WithField("field", change.Field).Debug("Skipping unhandled change field")
				continue
			}
			r.routeChange(ctx, &change.Value, summary)
		}
	}

	summary.Processed = len(summary.Results)
	return summary
}

func (r *EventRouter) routeChange(ctx context.Context, value *models.ChangeValue, summary *models.WebhookSummary) {
	contactNames := make(map[string]string, len(value.Contacts))
	for _, c := range value.Contacts {
		if c.WaID != "" && c.Profile.Name != "" {
			contactNames[c.WaID] = c.Profile.Name
		}
	}

	for i := range value.Messages {
		result := r.ingest.ProcessMessage(ctx, &value.Messages[i], contactNames)
		summary.Results = append(summary.Results, result)
	}

	for i := range value.Statuses {
		result := r.status.Apply(ctx, &value.Statuses[i])
		summary.Results = append(summary.Results, result)
	}

	for _, pe := range value.Errors {
		r.logger.WithFields(logrus.Fields{
			"platform_error_code": pe.Code,
			"title":               pe.Title,
		}).Error("Platform error notice received")
		summary.Results = append(summary.Results, models.EventResult{
			Kind:    "error",
			Success: true,
		})
	}
}
