package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"

	defaultTimeout      = 30 * time.Second
	defaultRetryCount   = 2
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryWaitCap = 5 * time.Second
)

type contextKey int

const localUnauthorizedKey contextKey = iota

// WithLocalUnauthorized marks a request whose 401 belongs to the caller
// rather than to session expiry. The session store uses it for its own auth
// calls: a rejected re-login while an old token is still held must surface
// as a credential error, not clear the session.
func WithLocalUnauthorized(ctx context.Context) context.Context {
	return context.WithValue(ctx, localUnauthorizedKey, true)
}

// TokenSource supplies the current bearer credential. The session store
// implements it. An empty token means the request goes out unauthenticated
// (login is intentionally public).
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler reacts to a 401 on an authenticated request. The
// standard wiring clears the session store and navigates the client to the
// login entry point.
type UnauthorizedHandler func()

// Pipeline is the single choke-point for outbound HTTP calls. Every
// resource read and mutation flows through it, so credential injection and
// 401 handling live here and nowhere else.
type Pipeline struct {
	client         *resty.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
	logger         zerolog.Logger
}

// PipelineOption defines a function type to modify the Pipeline instance.
type PipelineOption func(*Pipeline)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.client.SetTimeout(timeout)
	}
}

// WithUnauthorizedHandler sets the global 401 reaction. No endpoint can opt
// out: a 401 means the held credential is no longer valid for any resource.
func WithUnauthorizedHandler(handler UnauthorizedHandler) PipelineOption {
	return func(p *Pipeline) {
		p.onUnauthorized = handler
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRetryCount overrides the read-retry budget (0 disables retries).
func WithRetryCount(count int) PipelineOption {
	return func(p *Pipeline) {
		p.client.SetRetryCount(count)
	}
}

// NewPipeline creates the request pipeline against the given API base URL.
// tokens is required; resource packages and the session store share one
// pipeline instance.
func NewPipeline(baseURL string, tokens TokenSource, options ...PipelineOption) (*Pipeline, error) {
	if baseURL == "" {
		return nil, errors.New("[NewPipeline] base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewPipeline] token source is required")
	}

	pipeline := &Pipeline{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetRetryCount(defaultRetryCount).
			SetRetryWaitTime(defaultRetryWait).
			SetRetryMaxWaitTime(defaultRetryWaitCap),
		tokens: tokens,
		logger: zerolog.Nop(),
	}

	for _, opt := range options {
		opt(pipeline)
	}

	// Reads may be retried on transient failures; mutations never are. The
	// user re-invokes a failed mutation, a poll re-issues a failed read.
	pipeline.client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || resp.StatusCode() >= http.StatusInternalServerError
	})

	pipeline.client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if token := pipeline.tokens.Token(); token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		req.SetHeader(requestIDHeader, uuid.NewString())
		return nil
	})

	pipeline.client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() != http.StatusUnauthorized {
			return nil
		}
		// 401 on an authenticated request invalidates the whole session.
		// An unauthenticated 401 (e.g. a rejected login) stays local to
		// the caller, as does any request marked WithLocalUnauthorized.
		if resp.Request.Header.Get("Authorization") == "" {
			return nil
		}
		if local, _ := resp.Request.Context().Value(localUnauthorizedKey).(bool); local {
			return nil
		}
		pipeline.logger.Info().
			Str("path", resp.Request.URL).
			Msg("received 401 on authenticated request, clearing session")
		if pipeline.onUnauthorized != nil {
			pipeline.onUnauthorized()
		}
		return nil
	})

	return pipeline, nil
}

// Get issues a read. query may be nil; out may be nil to discard the body.
func (p *Pipeline) Get(ctx context.Context, path string, query map[string]string, out any) error {
	req := p.request(ctx, out)
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return p.check(resp, err)
}

// Post issues a write. body and out may be nil.
func (p *Pipeline) Post(ctx context.Context, path string, body, out any) error {
	return p.check(p.requestWithBody(ctx, body, out).Post(path))
}

// Put issues a full-replace write.
func (p *Pipeline) Put(ctx context.Context, path string, body, out any) error {
	return p.check(p.requestWithBody(ctx, body, out).Put(path))
}

// Patch issues a partial write.
func (p *Pipeline) Patch(ctx context.Context, path string, body, out any) error {
	return p.check(p.requestWithBody(ctx, body, out).Patch(path))
}

// Delete issues a delete. out may be nil.
func (p *Pipeline) Delete(ctx context.Context, path string, out any) error {
	return p.check(p.request(ctx, out).Delete(path))
}

func (p *Pipeline) request(ctx context.Context, out any) *resty.Request {
	req := p.client.R().SetContext(ctx)
	if out != nil {
		req.SetResult(out)
	}
	return req
}

func (p *Pipeline) requestWithBody(ctx context.Context, body, out any) *resty.Request {
	req := p.request(ctx, out)
	if body != nil {
		req.SetBody(body)
	}
	return req
}

// check turns a resty outcome into a classified *APIError, or nil on
// success. All non-401 error statuses pass through to the caller for
// resource-specific handling.
func (p *Pipeline) check(resp *resty.Response, err error) error {
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	if resp == nil || !resp.IsError() {
		return nil
	}

	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	status := resp.StatusCode()
	apiErr := &APIError{
		StatusCode: status,
		Message:    body.text(status),
	}
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case status >= http.StatusInternalServerError:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindValidation
	}
	return apiErr
}
