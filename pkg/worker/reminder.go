package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/pkg/logger"
	"github.com/alsalam/hospital-api/pkg/mailer"
	"github.com/alsalam/hospital-api/pkg/messaging"
	"github.com/alsalam/hospital-api/pkg/metrics"
)

// ReminderConsumer listens for booked appointments and emails the patient a
// confirmation. Patients without an email address are skipped.
type ReminderConsumer struct {
	broker  messaging.Broker
	mailer  mailer.Mailer
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewReminderConsumer(broker messaging.Broker, m mailer.Mailer, logger *logger.Logger, metrics *metrics.Metrics) *ReminderConsumer {
	return &ReminderConsumer{broker: broker, mailer: m, logger: logger, metrics: metrics}
}

func (c *ReminderConsumer) Start(ctx context.Context) error {
	msgs, err := c.broker.Subscribe(ctx, model.EventAppointmentBooked)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("starting reminder consumer", "channel", model.EventAppointmentBooked)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("shutting down reminder consumer")
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(raw)
		}
	}
}

func (c *ReminderConsumer) handle(raw []byte) {
	// The broker re-marshals the payload, so it arrives JSON-quoted.
	var inner []byte
	if err := json.Unmarshal(raw, &inner); err != nil {
		inner = raw
	}

	var payload model.AppointmentEventPayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		c.logger.Error(err, "failed to decode appointment event")
		return
	}
	if payload.PatientEmail == "" {
		return
	}

	subject := "Appointment confirmation"
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s is confirmed for %s.\n\nAl Salam General Hospital",
		payload.PatientName,
		payload.DoctorName,
		payload.ScheduledAt.Format("2006-01-02 15:04"),
	)

	if err := c.mailer.Send(payload.PatientEmail, subject, body); err != nil {
		c.metrics.RemindersFailed.Inc()
		c.logger.Error(err, "failed to send reminder", "appointment_id", payload.AppointmentID.String())
		return
	}
	c.metrics.RemindersSent.Inc()
}
