package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores documents content-addressed by sha256 in a bucket.
type S3Uploader struct {
	Bucket     string
	PublicBase string
	client     putter
}

// NewS3Uploader loads the default AWS config (env, shared files, endpoint override).
func NewS3Uploader(ctx context.Context, bucket, publicBase string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return &S3Uploader{Bucket: bucket, PublicBase: strings.TrimRight(publicBase, "/"), client: client}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:]) + strings.ToLower(path.Ext(name))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
		ACL:         types.ObjectCannedACLPublicRead,
		Metadata:    map[string]string{"filename": name},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return u.PublicBase + "/" + key, nil
}
