// Package transport holds the two collaborator adapters: a REST client
// for authoritative writes and a push (websocket) consumer for
// fire-and-forget events. Raw failures are mapped into the error taxonomy
// here; nothing past this boundary sees a socket error.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"chatsync/pkg/config"
	"chatsync/pkg/errdefs"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/telemetry"
)

// REST is the request/response adapter for the backend collaborator.
type REST struct {
	base    string
	apiKey  string
	timeout time.Duration
	client  *fasthttp.Client
	limiter *rate.Limiter
}

// NewREST builds the adapter from backend config.
func NewREST(cfg config.BackendConfig) *REST {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultBackendTimeout
	}
	rps := cfg.RetryRPS
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.RetryBurst
	if burst <= 0 {
		burst = 40
	}
	return &REST{
		base:    cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &fasthttp.Client{ReadTimeout: timeout, WriteTimeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// do issues one JSON request and decodes the response into out (when
// non-nil). Failures are mapped into the taxonomy before returning.
func (r *REST) do(ctx context.Context, method, path string, body, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return errdefs.Wrap(errdefs.KindNetworkUnavailable, err, "rate limit wait")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(r.base + path)
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		telemetry.RESTFailures.WithLabelValues(string(errdefs.KindNetworkUnavailable)).Inc()
		return errdefs.Wrap(errdefs.KindNetworkUnavailable, err, method+" "+path)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		if out != nil && len(resp.Body()) > 0 {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response for %s %s: %w", method, path, err)
			}
		}
		return nil
	}

	var eb errorBody
	_ = json.Unmarshal(resp.Body(), &eb)
	msg := eb.Error
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}

	var kind errdefs.Kind
	switch {
	case status == fasthttp.StatusUnauthorized:
		kind = errdefs.KindAuthenticationMissing
	case status == fasthttp.StatusForbidden:
		kind = errdefs.KindAuthorizationDenied
	case status >= 400 && status < 500:
		kind = errdefs.KindServerRejected
	default:
		// 5xx is transient from the client's point of view
		kind = errdefs.KindNetworkUnavailable
	}
	telemetry.RESTFailures.WithLabelValues(string(kind)).Inc()
	logger.Warn("rest_call_failed", "method", method, "path", path, "status", status, "kind", string(kind))
	return errdefs.New(kind, "%s %s: %s", method, path, msg)
}

type createMessageReq struct {
	Content       string   `json:"content"`
	Attachments   []string `json:"attachments,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// CreateMessage posts a new message and returns the confirmed Message.
func (r *REST) CreateMessage(ctx context.Context, groupID, body string, attachments []string, correlationID string) (*models.Message, error) {
	var out models.Message
	req := createMessageReq{Content: body, Attachments: attachments, CorrelationID: correlationID}
	if err := r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditMessage updates a message's content and returns the full Message.
func (r *REST) EditMessage(ctx context.Context, groupID, msgID, body string) (*models.Message, error) {
	var out models.Message
	req := map[string]string{"content": body}
	if err := r.do(ctx, fasthttp.MethodPatch, "/groups/"+groupID+"/messages/"+msgID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage removes a message server-side.
func (r *REST) DeleteMessage(ctx context.Context, groupID, msgID string) error {
	return r.do(ctx, fasthttp.MethodDelete, "/groups/"+groupID+"/messages/"+msgID, nil, nil)
}

// ToggleReaction flips an emoji and returns the full message with the
// resolved reaction set, which callers apply wholesale.
func (r *REST) ToggleReaction(ctx context.Context, groupID, msgID, emoji string) (*models.Message, error) {
	var out models.Message
	req := map[string]string{"emoji": emoji}
	if err := r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/messages/"+msgID+"/reactions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchGroup returns the group and its roster.
func (r *REST) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var out models.Group
	if err := r.do(ctx, fasthttp.MethodGet, "/groups/"+groupID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPending returns the group's pending join requests.
func (r *REST) ListPending(ctx context.Context, groupID string) ([]models.Member, error) {
	var out []models.Member
	if err := r.do(ctx, fasthttp.MethodGet, "/groups/"+groupID+"/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveRequest resolves a pending request into an active member.
func (r *REST) ApproveRequest(ctx context.Context, groupID, userID string) error {
	return r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/requests/"+userID+"/approve", nil, nil)
}

// RejectRequest removes a pending request.
func (r *REST) RejectRequest(ctx context.Context, groupID, userID string) error {
	return r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/requests/"+userID+"/reject", nil, nil)
}

// SetRole promotes or demotes a member.
func (r *REST) SetRole(ctx context.Context, groupID, userID string, role models.Role) error {
	req := map[string]string{"role": string(role)}
	return r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/members/"+userID+"/role", req, nil)
}

// BanMember bans a member from the group.
func (r *REST) BanMember(ctx context.Context, groupID, userID string) error {
	return r.do(ctx, fasthttp.MethodPost, "/groups/"+groupID+"/members/"+userID+"/ban", nil, nil)
}

// RemoveMember removes a member from the roster.
func (r *REST) RemoveMember(ctx context.Context, groupID, userID string) error {
	return r.do(ctx, fasthttp.MethodDelete, "/groups/"+groupID+"/members/"+userID, nil, nil)
}
