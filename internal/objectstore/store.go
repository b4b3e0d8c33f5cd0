// Package objectstore persists uploaded files (product photos, PIX QR
// codes, donation receipts) in named buckets.
package objectstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"doacoes/internal/config"
)

const (
	BucketProductPhotos = "product-photos"
	BucketReceipts      = "receipts"
	BucketPixQR         = "pix-qr"
)

// Store writes data under bucket/path and returns the stored path.
type Store interface {
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
}

// New builds the backend selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "", "fs":
		return NewFSStore(cfg.StorageDir), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}

// GeneratePath returns folder/YYYY-MM-DD-<32 hex>.ext, unique per call.
func GeneratePath(folder, ext string, now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return fmt.Sprintf("%s/%s-%s.%s", strings.Trim(folder, "/"), now.UTC().Format("2006-01-02"), id, ext)
}

// ExtensionForContentType maps an image content type to a file extension.
// Unknown types are stored as jpeg.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "webp"):
		return "webp"
	case strings.Contains(ct, "gif"):
		return "gif"
	default:
		return "jpeg"
	}
}
