// Package archive exports behavior model snapshots to Google Cloud Storage
// as timestamped JSON objects, giving an audit trail of how a user's model
// evolved. Assumes Application Default Credentials are configured.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/spendlens/spendlens/internal/behavior"
)

const uploadTimeout = 2 * time.Minute

// Archiver writes model snapshots to a GCS bucket.
type Archiver interface {
	// ArchiveModel uploads a snapshot and returns its GCS URI.
	ArchiveModel(ctx context.Context, model *behavior.Model) (string, error)
}

// GCSArchiver is the concrete Archiver backed by Google Cloud Storage.
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver creates an archiver writing to the given bucket.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchiver: create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// Close closes the underlying storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ArchiveModel implements Archiver. Object names embed the user, a UTC
// timestamp and a random suffix, so snapshots never collide:
// models/<user>/<timestamp>-<uuid>.json
func (a *GCSArchiver) ArchiveModel(ctx context.Context, model *behavior.Model) (string, error) {
	if model == nil || model.UserID == "" {
		return "", fmt.Errorf("ArchiveModel: model with user ID is required")
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ArchiveModel: marshal model: %w", err)
	}

	objectName := fmt.Sprintf("models/%s/%s-%s.json",
		model.UserID,
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.New().String(),
	)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("ArchiveModel: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("ArchiveModel: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

var _ Archiver = (*GCSArchiver)(nil)
