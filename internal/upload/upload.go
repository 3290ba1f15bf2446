// Package upload stores record documents and returns a public URL for them.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jask/medadmin/internal/config"
)

// Uploader stores the content read from r and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// File uploads the file at path.
func File(ctx context.Context, u Uploader, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return u.Upload(ctx, filepath.Base(path), f)
}

// New builds the uploader selected by cfg.Provider ("pinning" or "s3").
func New(ctx context.Context, cfg config.UploadConfig) (Uploader, error) {
	switch cfg.Provider {
	case "", "pinning":
		return NewPinningClient(cfg.Endpoint, cfg.Gateway, cfg.JWTEnv), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("upload.s3_bucket is required for the s3 provider")
		}
		return NewS3Uploader(ctx, cfg.S3Bucket, cfg.S3PublicBase)
	default:
		return nil, fmt.Errorf("unknown upload provider %q", cfg.Provider)
	}
}
