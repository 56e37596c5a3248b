// Package minio stores relcache entries as objects in an S3-compatible
// bucket, one object per key.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	mc "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	pr "github.com/unkn0wn-root/relcache/provider"
)

type Provider struct {
	c      *mc.Client
	bucket string
}

var (
	_ pr.Provider     = (*Provider)(nil)
	_ pr.PrefixLister = (*Provider)(nil)
)

type Config struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	// CreateBucket makes the bucket when it does not exist yet.
	CreateBucket bool
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio provider: bucket is required")
	}
	c, err := mc.New(cfg.Endpoint, &mc.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio provider: %w", err)
	}
	if cfg.CreateBucket {
		exists, err := c.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("minio provider: bucket exists: %w", err)
		}
		if !exists {
			if err := c.MakeBucket(ctx, cfg.Bucket, mc.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("minio provider: make bucket: %w", err)
			}
		}
	}
	return &Provider{c: c, bucket: cfg.Bucket}, nil
}

func isNotFound(err error) bool {
	code := mc.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := p.c.GetObject(ctx, p.bucket, key, mc.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only shows up on first read.
	b, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.c.PutObject(ctx, p.bucket, key, bytes.NewReader(value), int64(len(value)), mc.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (p *Provider) Del(ctx context.Context, key string) error {
	return p.c.RemoveObject(ctx, p.bucket, key, mc.RemoveObjectOptions{})
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	_, err := p.c.StatObject(ctx, p.bucket, key, mc.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *Provider) Keys(ctx context.Context) ([]string, error) {
	return p.KeysWithPrefix(ctx, "")
}

func (p *Provider) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for obj := range p.c.ListObjects(ctx, p.bucket, mc.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

func (p *Provider) Clear(ctx context.Context) error {
	return p.ClearPrefix(ctx, "")
}

func (p *Provider) ClearPrefix(ctx context.Context, prefix string) error {
	objects := p.c.ListObjects(ctx, p.bucket, mc.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for rerr := range p.c.RemoveObjects(ctx, p.bucket, objects, mc.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("minio provider: remove %q: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return nil
}

func (p *Provider) Close(context.Context) error { return nil }
