package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"authclient/internal/domain"
	"authclient/internal/notify"
)

const defaultTimeout = 30 * time.Second

// Config describes how the gateway reaches the authority.
type Config struct {
	// BaseURL is the authority endpoint every relative path is resolved
	// against, e.g. "http://localhost:8001/api/".
	BaseURL string
	Timeout time.Duration
	// WithCredentials enables a cookie jar so authority session cookies
	// ride along on every subsequent request.
	WithCredentials bool
	// ErrorTitle/ErrorMessage are shown through the Notifier when the
	// authority is unreachable or failing server-side.
	ErrorTitle   string
	ErrorMessage string

	Notifier notify.Notifier
	Logger   logrus.FieldLogger
}

// Gateway is the single configured HTTP client all session operations route
// through. It centralizes the base endpoint, credential forwarding, and the
// outage notification side effect. It never retries and never rewrites a
// failure: callers always observe the original error.
type Gateway struct {
	base     *url.URL
	client   *http.Client
	notifier notify.Notifier
	logger   logrus.FieldLogger

	errTitle   string
	errMessage string
}

func New(cfg Config) (*Gateway, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute, got %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ErrorTitle == "" {
		cfg.ErrorTitle = "Oops..."
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "We have a problem with the network, please try again later"
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.WithCredentials {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return &Gateway{
		base:       base,
		client:     client,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		errTitle:   cfg.ErrorTitle,
		errMessage: cfg.ErrorMessage,
	}, nil
}

// Get issues a GET against the given relative path and decodes the JSON
// response into out (which may be nil to discard the body).
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return g.do(req, out)
}

// Post issues a POST with a JSON body (nil means empty body) and decodes the
// JSON response into out.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.resolve(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return g.do(req, out)
}

// PostForm issues a multipart POST carrying text fields plus optional file
// attachments, for endpoints that accept uploads alongside form data.
func (g *Gateway) PostForm(ctx context.Context, path string, fields map[string]string, attachments []domain.Attachment, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	for _, att := range attachments {
		field := att.Field
		if field == "" {
			field = "file"
		}
		part, err := writer.CreateFormFile(field, att.Filename)
		if err != nil {
			return fmt.Errorf("create form file %s: %w", att.Filename, err)
		}
		if _, err := io.Copy(part, att.Reader); err != nil {
			return fmt.Errorf("copy attachment %s: %w", att.Filename, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.resolve(path), &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return g.do(req, out)
}

// do runs the request and applies the response interception contract: a
// transport-level failure (no HTTP response exists at all) or a 5xx answer
// triggers exactly one Notifier error, and the original failure is returned
// unchanged either way. 4xx answers pass through silently as *APIError.
func (g *Gateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("url", req.URL.String()).Warn("request failed before a response arrived")
		g.notifier.ShowError(g.errTitle, g.errMessage)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp)
		if resp.StatusCode >= http.StatusInternalServerError {
			g.logger.WithField("status", resp.StatusCode).WithField("url", req.URL.String()).Warn("authority reported a server error")
			g.notifier.ShowError(g.errTitle, g.errMessage)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resolve joins a relative path onto the configured base endpoint.
func (g *Gateway) resolve(path string) string {
	return g.base.JoinPath(strings.TrimPrefix(path, "/")).String()
}
