// =============================================================================
// Journal Batch Upload - OData Transport
// =============================================================================
//
// Sends a built payload to the receiving OData service.
//
// REQUEST FLOW:
//   1. GET  <base_url>/                 X-CSRF-Token: Fetch
//      The returned token and session cookies are kept for the next call.
//   2. POST <base_url>/<entity_set>     JSON body, X-CSRF-Token: <token>
//
// Basic auth and the sap-client query parameter are added when configured.
// A failed token fetch is not fatal; the POST is then sent without a token
// and the service decides.
//
// ERRORS:
//   Every failure is a *SubmitError matching ErrSubmission. When the
//   service answers with an OData error body, its message is kept so it can
//   be shown to the user (see MessageOf).
//
// =============================================================================

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
)

const (
	csrfHeader = "X-CSRF-Token"

	// GenericMessage is shown when the service gave no usable message.
	GenericMessage = "submission failed"

	maxErrorBody = 64 << 10
)

// ErrSubmission matches every error returned by Submit.
var ErrSubmission = errors.New("submission error")

// SubmitError describes a failed create call.
type SubmitError struct {
	// StatusCode is zero when no response was received.
	StatusCode int

	// Message is the service-provided text, empty when none was found.
	Message string

	Err error
}

func (e *SubmitError) Error() string {
	var b strings.Builder
	b.WriteString(ErrSubmission.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *SubmitError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmitError) Unwrap() error { return e.Err }

// MessageOf returns the message to show the user for a submission error.
func MessageOf(err error) string {
	var se *SubmitError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return GenericMessage
}

// Receipt is returned for an accepted batch.
type Receipt struct {
	StatusCode int

	// BatchID is the key assigned by the service, empty if not echoed.
	BatchID string
}

// Submitter is the transport boundary used by the editing session.
type Submitter interface {
	Submit(ctx context.Context, batch *payload.Batch) (*Receipt, error)
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds the connection settings.
type Config struct {
	BaseURL   string
	EntitySet string
	Username  string
	Password  string
	SAPClient string
	Timeout   time.Duration
}

// Client is an OData create client.
type Client struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. A cookie jar is added when the
// client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client for cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("transport: empty base url")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("transport: invalid base url: %w", err)
	}
	if cfg.EntitySet == "" {
		cfg.EntitySet = "BatchCreateSet"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		c.client.Jar = jar
	}
	return c, nil
}

// Submit posts the batch to the entity set.
func (c *Client) Submit(ctx context.Context, batch *payload.Batch) (*Receipt, error) {
	body, err := batch.JSON()
	if err != nil {
		return nil, &SubmitError{Err: err}
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("csrf token fetch failed, posting without token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.EntitySet), bytes.NewReader(body))
	if err != nil {
		return nil, &SubmitError{Err: err}
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(csrfHeader, token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &SubmitError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Message: extractMessage(data)}
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("batch accepted")
	return &Receipt{StatusCode: resp.StatusCode, BatchID: extractBatchID(data)}, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(""), nil)
	if err != nil {
		return "", err
	}
	c.decorate(req)
	req.Header.Set(csrfHeader, "Fetch")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	token := resp.Header.Get(csrfHeader)
	if strings.EqualFold(token, "required") {
		token = ""
	}
	return token, nil
}

func (c *Client) endpoint(path string) string {
	u := c.cfg.BaseURL + "/" + path
	if c.cfg.SAPClient != "" {
		u += "?" + url.Values{"sap-client": {c.cfg.SAPClient}}.Encode()
	}
	return u
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

// =============================================================================
// RESPONSE PARSING
// =============================================================================

// odataError covers both the v2 shape {"error":{"message":{"value":"..."}}}
// and the v4 shape {"error":{"message":"..."}}.
type odataError struct {
	Error struct {
		Code    string          `json:"code"`
		Message json.RawMessage `json:"message"`
	} `json:"error"`
}

func extractMessage(body []byte) string {
	var e odataError
	if err := json.Unmarshal(body, &e); err != nil || len(e.Error.Message) == 0 {
		return ""
	}
	var v2 struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(e.Error.Message, &v2); err == nil {
		return strings.TrimSpace(v2.Value)
	}
	var v4 string
	if err := json.Unmarshal(e.Error.Message, &v4); err == nil {
		return strings.TrimSpace(v4)
	}
	return ""
}

func extractBatchID(body []byte) string {
	var created struct {
		D struct {
			BatchID json.RawMessage `json:"BatchId"`
		} `json:"d"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return ""
	}
	id := string(created.D.BatchID)
	if id == "null" {
		return ""
	}
	return strings.Trim(id, `"`)
}
