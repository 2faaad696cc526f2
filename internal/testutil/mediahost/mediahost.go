// Package mediahost is a fake media host for tests: it serves asset bodies
// under a repo-qualified prefix the way media.githubusercontent.com does.
package mediahost

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

const Prefix = "/media/owner/repo/refs/heads/main"

// Host is a running fake media host.
type Host struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	statuses map[string]int
	cut      map[string]int
	requests []string
}

// New starts a plain HTTP host and registers Close with t.
func New(t testing.TB) *Host {
	t.Helper()
	return start(t, httptest.NewServer)
}

// NewTLS starts a host behind a self-signed certificate that no client
// trusts by default.
func NewTLS(t testing.TB) *Host {
	t.Helper()
	return start(t, httptest.NewTLSServer)
}

func start(t testing.TB, newServer func(http.Handler) *httptest.Server) *Host {
	h := &Host{
		files:    make(map[string][]byte),
		statuses: make(map[string]int),
		cut:      make(map[string]int),
	}

	r := mux.NewRouter()
	r.PathPrefix(Prefix + "/").HandlerFunc(h.serve).Methods(http.MethodGet)
	h.Server = newServer(r)
	t.Cleanup(h.Close)
	return h
}

// BaseURL is the value to pass as the remote base.
func (h *Host) BaseURL() string {
	return h.URL + Prefix
}

// Put registers a body for an asset path.
func (h *Host) Put(assetPath string, body []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[assetPath] = body
}

// Fail makes an asset path answer with status.
func (h *Host) Fail(assetPath string, status int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[assetPath] = status
}

// Truncate makes an asset path announce its full length but drop the
// connection after sending only the first n bytes of body.
func (h *Host) Truncate(assetPath string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cut[assetPath] = n
}

// Requests lists the asset paths requested so far, in order.
func (h *Host) Requests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.requests))
	copy(out, h.requests)
	return out
}

func (h *Host) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, Prefix+"/")

	h.mu.Lock()
	h.requests = append(h.requests, key)
	status, failing := h.statuses[key]
	body, ok := h.files[key]
	cutAt, cut := h.cut[key]
	h.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if cut && cutAt < len(body) {
		h.sendTruncated(w, body, cutAt)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(body)
}

func (h *Host) sendTruncated(w http.ResponseWriter, body []byte, n int) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		return
	}
	defer conn.Close()

	fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: %d\r\n\r\n", len(body))
	_, _ = buf.Write(body[:n])
	_ = buf.Flush()
}
