// Package archive stores original receipt uploads in GCS so the source blob
// of any transaction can be pulled up later. Archiving is best effort: it is
// disabled when no bucket is configured, and a failed upload never blocks
// receipt processing.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// uploadTimeout bounds a single archive write.
const uploadTimeout = 2 * time.Minute

// Uploader writes receipt blobs into a GCS bucket. It assumes Application
// Default Credentials are configured.
type Uploader struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// NewUploader creates an uploader for the given bucket. An empty bucket name
// returns a disabled uploader and no error, so callers can construct it
// unconditionally.
func NewUploader(ctx context.Context, bucket string, log zerolog.Logger) (*Uploader, error) {
	if bucket == "" {
		return &Uploader{log: log}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewUploader: create storage client: %w", err)
	}
	return &Uploader{
		client: client,
		bucket: bucket,
		log:    log,
	}, nil
}

// Enabled reports whether archiving is configured.
func (u *Uploader) Enabled() bool {
	return u.client != nil
}

// Close releases the storage client.
func (u *Uploader) Close() error {
	if u.client != nil {
		return u.client.Close()
	}
	return nil
}

// Archive uploads a receipt blob under a dated, collision-free object name
// and returns its gs:// URI. Calling Archive on a disabled uploader is an
// error; callers check Enabled first.
func (u *Uploader) Archive(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if !u.Enabled() {
		return "", fmt.Errorf("archive: no bucket configured")
	}

	objectName := fmt.Sprintf("receipts/%s/%s-%s",
		time.Now().UTC().Format("2006/01/02"),
		uuid.NewString(),
		filepath.Base(filename),
	)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: close writer for %q: %w", objectName, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", u.bucket, objectName)
	u.log.Info().
		Str("gcs_uri", uri).
		Int("bytes", len(data)).
		Msg("Receipt archived")

	return uri, nil
}
