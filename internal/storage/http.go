package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

// HTTPConfig configures the plain HTTPS source.
type HTTPConfig struct {
	BaseURL string
	// InsecureSkipVerify disables certificate validation. Only for hosts
	// whose chain cannot be verified locally.
	InsecureSkipVerify bool
	// Timeout bounds a whole request; zero leaves it to the transport.
	Timeout   time.Duration
	UserAgent string
}

// HTTPClient abstracts the client for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches <BaseURL>/<key> with GET.
type HTTPSource struct {
	baseURL   string
	userAgent string
	client    HTTPClient
}

// NewHTTPSource builds an HTTPSource with its own transport.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, // #nosec G402 -- explicit opt-in flag
	}
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	return NewHTTPSourceWithClient(cfg, client)
}

// NewHTTPSourceWithClient builds an HTTPSource around an injected client.
func NewHTTPSourceWithClient(cfg HTTPConfig, client HTTPClient) (*HTTPSource, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote base URL must be provided")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("remote base URL must be http(s): %s", base)
	}
	return &HTTPSource{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		client:    client,
	}, nil
}

// URL returns the address an asset key is fetched from.
func (s *HTTPSource) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(strings.ReplaceAll(key, `\`, "/"), "/")
}

func (s *HTTPSource) Describe() string {
	return s.baseURL
}

// Open issues the GET. Any non-2xx status is a TransportError and the body is
// discarded.
func (s *HTTPSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	url := s.URL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	return transportBody{ReadCloser: resp.Body, url: url}, nil
}

var _ Source = (*HTTPSource)(nil)
