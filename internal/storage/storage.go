package storage

import (
	"context"
	"errors"
	"io"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

// Source serves asset bodies keyed by forward-slash asset path.
type Source interface {
	// Open returns the full body for key. Implementations return a
	// *domain.TransportError for anything that is not a usable body, both
	// from Open and from reads of the returned body.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Describe names the remote for banners and logs.
	Describe() string
}

// transportBody reports a body cut short (reset, timeout, truncated
// Content-Length) as a TransportError for url.
type transportBody struct {
	io.ReadCloser
	url string
}

func (b transportBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		var te *domain.TransportError
		if !errors.As(err, &te) {
			err = &domain.TransportError{URL: b.url, Err: err}
		}
	}
	return n, err
}
