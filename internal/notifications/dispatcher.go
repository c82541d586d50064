package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// ErrNoChannel is returned when no channel accepts a callback ref.
var ErrNoChannel = errors.New("no delivery channel for callback ref")

// Dispatcher records every outbound message and sends it: supervisor
// alerts to an optional webhook, answers through the first channel that
// accepts the caller's callback ref.
type Dispatcher struct {
	store      *Store
	client     *http.Client
	webhookURL string
	channels   []Channel
	log        *zap.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store. An empty
// webhookURL keeps supervisor alerts on the dashboard only.
func NewDispatcher(store *Store, webhookURL string, channels []Channel, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		webhookURL: webhookURL,
		channels:   channels,
		log:        logger.Named("notifications"),
	}
}

// SupervisorMessage is the text a supervisor sees for a new request.
func SupervisorMessage(r requests.HelpRequest) string {
	return fmt.Sprintf("Help request %s - customer %s asked: %s", r.ID, r.CustomerID, r.Question)
}

// CustomerMessage is the text read back to the caller once answered.
func CustomerMessage(r requests.HelpRequest) string {
	return fmt.Sprintf("Regarding your question: '%s', here's the answer: %s", r.Question, r.Answer)
}

// NotifySupervisor persists an alert for r and, when a webhook is
// configured, posts it there.
func (d *Dispatcher) NotifySupervisor(ctx context.Context, r requests.HelpRequest) error {
	msg := SupervisorMessage(r)
	recipient := "dashboard"
	if d.webhookURL != "" {
		recipient = d.webhookURL
	}

	n, err := d.store.Create(ctx, Notification{
		Type:      TypeSupervisorAlert,
		RequestID: r.ID,
		Recipient: recipient,
		Title:     "Help needed: " + r.Question,
		Message:   msg,
		Delivered: d.webhookURL == "",
	})
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	d.log.Info("supervisor notified", zap.String("request_id", r.ID), zap.String("recipient", recipient))

	if d.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(SupervisorAlert{
		RequestID:  r.ID,
		CustomerID: r.CustomerID,
		Question:   r.Question,
		Message:    msg,
		Deadline:   r.Deadline,
	})
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}
	sendErr := d.SendWebhook(ctx, d.webhookURL, payload)
	if err := d.store.RecordResult(ctx, n.ID, sendErr); err != nil {
		d.log.Warn("recording notification result failed", zap.String("id", n.ID), zap.Error(err))
	}
	return sendErr
}

// DeliverAnswer sends the resolved answer for r to the session behind ref.
func (d *Dispatcher) DeliverAnswer(ctx context.Context, ref string, r requests.HelpRequest) error {
	a := Answer{
		RequestID:   r.ID,
		CustomerID:  r.CustomerID,
		CallbackRef: ref,
		Question:    r.Question,
		Answer:      r.Answer,
		Message:     CustomerMessage(r),
	}

	n, err := d.store.Create(ctx, Notification{
		Type:      TypeAnswerDelivery,
		RequestID: r.ID,
		Recipient: ref,
		Title:     "Answer for " + r.CustomerID,
		Message:   a.Message,
	})
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	sendErr := ErrNoChannel
	for _, ch := range d.channels {
		if !ch.Accepts(ref) {
			continue
		}
		sendErr = ch.Send(ctx, ref, a)
		if sendErr == nil {
			d.log.Info("answer delivered",
				zap.String("request_id", r.ID),
				zap.String("channel", ch.Name()))
		}
		break
	}

	if err := d.store.RecordResult(ctx, n.ID, sendErr); err != nil {
		d.log.Warn("recording notification result failed", zap.String("id", n.ID), zap.Error(err))
	}
	return sendErr
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	return postJSON(ctx, d.client, url, payload)
}
