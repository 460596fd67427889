// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pdiddy/pack-sync/pkg/types"
)

const defaultS3Region = "us-east-1"

// S3Fetcher reads datasets from an S3-compatible bucket.
type S3Fetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Fetcher parses an s3://bucket/prefix location and connects to the
// configured endpoint. Static credentials are used when both keys are
// set; otherwise the client is anonymous.
func NewS3Fetcher(location string, cfg types.S3Config) (*S3Fetcher, error) {
	bucket, prefix, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required for %s", location)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultS3Region
	}

	access, secret := strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		access, secret = "", ""
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Fetcher{client: client, bucket: bucket, prefix: prefix}, nil
}

func parseS3Location(location string) (bucket, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w", location, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 location %q (want s3://bucket/prefix)", location)
	}
	prefix = strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return u.Host, prefix, nil
}

// Key returns the object key for a dataset name.
func (f *S3Fetcher) Key(name string) string {
	return f.prefix + name
}

// Fetch downloads the object prefix+name.
func (f *S3Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := f.Key(name)
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", f.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxDatasetBytes+1))
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, fmt.Errorf("s3://%s/%s: %w", f.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading s3://%s/%s: %w", f.bucket, key, err)
	}
	if len(data) > maxDatasetBytes {
		return nil, fmt.Errorf("dataset %s exceeds %d bytes", name, maxDatasetBytes)
	}
	return data, nil
}
