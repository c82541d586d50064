package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

const (
	maxWait      = 60 * time.Second
	pollInterval = time.Second
)

// handleAskQuestion answers from the knowledge base or escalates.
func (s *Server) handleAskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	customerID, err := request.RequireString("customer_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: customer_id"), nil
	}
	callbackRef := request.GetString("callback_ref", "")

	out, err := s.desk.Ask(ctx, customerID, question, callbackRef)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	if out.Found {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Known answer (%s match, confidence %.2f): %s", out.Strategy, out.Confidence, out.Answer,
		)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"No known answer. Escalated as request %s. Tell the caller: %q Use check_request with this id to get the answer.",
		out.Request.ID, out.Message,
	)), nil
}

// handleCheckRequest reports a request's status, optionally waiting for an
// answer first.
func (s *Server) handleCheckRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("request_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: request_id"), nil
	}

	wait := time.Duration(request.GetInt("wait_seconds", 0)) * time.Second
	if wait > maxWait {
		wait = maxWait
	}
	if wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		_, _, err := s.desk.Await(waitCtx, id, pollInterval)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return s.requestError(id, err), nil
		}
	}

	r, err := s.requests.Get(ctx, id)
	if err != nil {
		return s.requestError(id, err), nil
	}
	return mcp.NewToolResultText(formatStatus(r)), nil
}

func (s *Server) requestError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, lifecycle.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no help request with id %q", id))
	}
	return mcp.NewToolResultError(fmt.Sprintf("checking request failed: %v", err))
}

func formatStatus(r *requests.HelpRequest) string {
	switch r.Status {
	case requests.StatusResolved:
		return fmt.Sprintf("Resolved. The supervisor answered: %s", r.Answer)
	case requests.StatusUnresolved:
		if r.Reason == requests.ReasonTimeout {
			return "Unresolved. No supervisor answered in time; offer to have someone call the customer back."
		}
		return "Unresolved. The supervisor could not answer; offer to have someone call the customer back."
	default:
		return fmt.Sprintf("Pending. Still waiting for a supervisor (deadline %s).", r.Deadline.Format(time.Kitchen))
	}
}

// handleGetBusinessInfo returns the business profile.
func (s *Server) handleGetBusinessInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.profile.Text(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read business profile: %v", err)), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultText("No business profile configured. Run `frontdesk seed` to load one."), nil
	}
	return mcp.NewToolResultText(text), nil
}
