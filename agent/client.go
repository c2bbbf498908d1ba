// Package agent is the HTTP client of the external AI conversational agent.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotConfigured is returned by every call when no base URL is configured.
var ErrNotConfigured = errors.New("AI_AGENT_BASE_URL is not configured")

// DefaultTimeout bounds a single agent round-trip.
const DefaultTimeout = 60 * time.Second

// Client calls the agent's /startagent and /ask endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates an agent client. An empty baseURL is logged and every call then fails
// with ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger = logger.With("component", "ai_agent")
	if baseURL == "" {
		logger.Warn("AI_AGENT_BASE_URL is not configured")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		tracer:  otel.Tracer("github.com/CalHacks12USF/fregister-backend/agent"),
	}
}

type startRequest struct {
	UserID string `json:"user_id"`
}

type startResponse struct {
	Status string `json:"status"`
}

type askRequest struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type askResponse struct {
	AIMessage string `json:"aimessage"`
}

// StartAgent initializes the agent for userID. Any status other than "ok" is an error.
func (c *Client) StartAgent(ctx context.Context, userID string) error {
	ctx, span := c.tracer.Start(ctx, "agent.start", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	c.logger.Info("starting AI agent", "user_id", userID)

	var resp startResponse
	if err := c.post(ctx, "/startagent", startRequest{UserID: userID}, &resp); err != nil {
		return record(span, err)
	}
	if resp.Status != "ok" {
		return record(span, fmt.Errorf("AI agent returned unexpected status: %q", resp.Status))
	}

	c.logger.Info("AI agent started", "user_id", userID)
	return nil
}

// Ask sends message on behalf of userID in threadID and returns the agent's reply. An
// empty reply is an error.
func (c *Client) Ask(ctx context.Context, userID, threadID, message string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "agent.ask", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("thread.id", threadID),
	))
	defer span.End()

	c.logger.Info("asking AI agent", "user_id", userID, "thread_id", threadID)

	var resp askResponse
	if err := c.post(ctx, "/ask", askRequest{UserID: userID, ThreadID: threadID, Message: message}, &resp); err != nil {
		return "", record(span, err)
	}
	if resp.AIMessage == "" {
		return "", record(span, errors.New("AI agent did not return an aimessage"))
	}

	c.logger.Info("AI agent responded", "thread_id", threadID, "length", len(resp.AIMessage))
	return resp.AIMessage, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call AI agent %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("AI agent %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode AI agent %s response: %w", path, err)
	}
	return nil
}

func record(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
