// Package blob abstracts the object storage backend that holds images,
// attachments, offloaded entry content, and full-document payloads.
// The primary implementation is S3-compatible storage; Unconfigured stands in
// when no backend is configured so callers degrade to local-only mode
// instead of branching on a nullable client.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// Store is the object-store contract the gateway, snapshot job, and upload
// handler depend on. Objects are addressed by key on write and by their
// public URL on read/delete, mirroring how the document format references
// them (entries store URLs, not keys).
type Store interface {
	// Upload writes data under key and returns the object's public URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Fetch downloads the object behind a URL previously returned by Upload.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Delete removes the object behind the URL. Callers deleting blobs for a
	// removed entry treat failures as best-effort: log and move on.
	Delete(ctx context.Context, url string) error

	// List returns all object keys under prefix, lexicographically sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// URL maps a key to the public URL Upload would have returned for it.
	URL(key string) string
}

// Key builders. Keys embed the creation timestamp so they sort
// chronologically and never collide with earlier uploads of the same name.

// TextKey returns the object key for offloaded entry content.
func TextKey(name string) string {
	return fmt.Sprintf("contents/%d-%s", time.Now().UnixMilli(), name)
}

// ImageKey returns the object key for an uploaded image.
func ImageKey(name string) string {
	return fmt.Sprintf("images/%d-%s", time.Now().UnixMilli(), name)
}

// AttachmentKey returns the object key for an uploaded attachment.
func AttachmentKey(name string) string {
	return fmt.Sprintf("attachments/%d-%s", time.Now().UnixMilli(), name)
}

// PayloadKey returns the object key for a full-trip pointer payload.
func PayloadKey(tripID string) string {
	return fmt.Sprintf("payloads/%s/%d.json", tripID, time.Now().UnixMilli())
}

// Unconfigured is the Store used when no object storage is configured.
// Every operation fails with domain.ErrStorageUnavailable; callers treat
// that as "skip the offload, keep the data inline".
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, []byte, string) (string, error) {
	return "", domain.ErrStorageUnavailable
}

func (Unconfigured) Fetch(context.Context, string) ([]byte, error) {
	return nil, domain.ErrStorageUnavailable
}

func (Unconfigured) Delete(context.Context, string) error {
	return domain.ErrStorageUnavailable
}

func (Unconfigured) List(context.Context, string) ([]string, error) {
	return nil, domain.ErrStorageUnavailable
}

func (Unconfigured) URL(string) string { return "" }
