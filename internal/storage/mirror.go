package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

// MirrorConfig encapsulates the connection info for an S3-compatible bucket
// holding a copy of the asset tree.
type MirrorConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every asset key, e.g. "egregoria/master".
	Prefix string
	Region string
	UseSSL bool
}

// MirrorSource implements Source on top of minio-go.
type MirrorSource struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMirrorSource validates cfg and builds the client. No request is made
// until the first Open.
func NewMirrorSource(cfg MirrorConfig) (*MirrorSource, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("mirror endpoint must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror bucket must be provided")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	// Empty keys make the static provider sign anonymously, which public
	// mirrors accept.
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror client: %w", err)
	}

	return &MirrorSource{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectKey maps an asset path onto the bucket key.
func (m *MirrorSource) ObjectKey(key string) string {
	key = strings.TrimLeft(strings.ReplaceAll(key, `\`, "/"), "/")
	if m.prefix == "" {
		return key
	}
	return path.Join(m.prefix, key)
}

func (m *MirrorSource) Describe() string {
	return fmt.Sprintf("s3://%s/%s", m.bucket, m.prefix)
}

// Open stats the object first so missing keys surface as a TransportError
// carrying the S3 status instead of failing mid-copy.
func (m *MirrorSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey := m.ObjectKey(key)
	where := fmt.Sprintf("s3://%s/%s", m.bucket, objectKey)

	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, mirrorError(where, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mirrorError(where, err)
	}
	return transportBody{ReadCloser: obj, url: where}, nil
}

func mirrorError(where string, err error) error {
	resp := minio.ToErrorResponse(err)
	return &domain.TransportError{URL: where, StatusCode: resp.StatusCode, Err: err}
}

func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return strings.TrimPrefix(endpoint, "//"), useSSL
	}
}

var _ Source = (*MirrorSource)(nil)
