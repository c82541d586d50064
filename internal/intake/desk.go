// Package intake is the agent's entry point: answer from the knowledge base
// when possible, otherwise escalate to a supervisor.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// HoldMessage is what the agent tells a caller whose question was escalated.
const HoldMessage = "Let me check with my supervisor and get back to you."

// DefaultPollInterval is how often Await re-reads a request.
const DefaultPollInterval = 3 * time.Second

// Matcher looks a question up in the knowledge base.
type Matcher interface {
	Match(ctx context.Context, question string) (knowledge.Match, bool, error)
}

// Lifecycle is the subset of the engine the desk uses.
type Lifecycle interface {
	Create(ctx context.Context, customerID, question, callbackRef string) (*requests.HelpRequest, error)
	Get(ctx context.Context, id string) (*requests.HelpRequest, error)
}

// Outcome is the result of asking a question.
type Outcome struct {
	Found      bool                  `json:"found"`
	Answer     string                `json:"answer,omitempty"`
	Confidence float64               `json:"confidence,omitempty"`
	Strategy   string                `json:"strategy,omitempty"`
	Message    string                `json:"message"`
	Request    *requests.HelpRequest `json:"request,omitempty"`
}

// Desk answers or escalates customer questions.
type Desk struct {
	matcher   Matcher
	lifecycle Lifecycle
	log       *zap.Logger
}

// NewDesk creates a Desk.
func NewDesk(matcher Matcher, lc Lifecycle, logger *zap.Logger) *Desk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desk{matcher: matcher, lifecycle: lc, log: logger.Named("intake")}
}

// Ask answers question from the knowledge base or opens a help request.
// A knowledge base outage escalates rather than failing the caller.
func (d *Desk) Ask(ctx context.Context, customerID, question, callbackRef string) (*Outcome, error) {
	customerID = strings.TrimSpace(customerID)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", lifecycle.ErrValidation)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer_id is required", lifecycle.ErrValidation)
	}

	m, found, err := d.matcher.Match(ctx, question)
	switch {
	case errors.Is(err, knowledge.ErrEmptyQuestion):
		return nil, fmt.Errorf("%w: question has no words", lifecycle.ErrValidation)
	case err != nil:
		d.log.Warn("knowledge lookup failed, escalating",
			zap.String("customer_id", customerID), zap.Error(err))
	case found:
		d.log.Info("answered from knowledge base",
			zap.String("customer_id", customerID),
			zap.String("strategy", m.Strategy),
			zap.Float64("confidence", m.Confidence),
			zap.String("entry_id", m.Entry.ID))
		return &Outcome{
			Found:      true,
			Answer:     m.Answer,
			Confidence: m.Confidence,
			Strategy:   m.Strategy,
			Message:    m.Answer,
		}, nil
	}

	req, err := d.lifecycle.Create(ctx, customerID, question, callbackRef)
	if err != nil {
		return nil, err
	}
	return &Outcome{Message: HoldMessage, Request: req}, nil
}

// Await polls the request until it closes or ctx is done. It returns the
// answer and true once resolved; a request closed as unresolved returns
// false with no error.
func (d *Desk) Await(ctx context.Context, id string, interval time.Duration) (string, bool, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		req, err := d.lifecycle.Get(ctx, id)
		if err != nil {
			return "", false, err
		}
		switch req.Status {
		case requests.StatusResolved:
			return req.Answer, true, nil
		case requests.StatusUnresolved:
			return "", false, nil
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-ticker.C:
		}
	}
}
