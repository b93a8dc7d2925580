// Package s3 persists query-state snapshots as objects in an S3 compatible
// bucket (AWS S3 or MinIO). Snapshot metadata travels as object metadata.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/goliatone/go-query-state/pkg/state"
)

const (
	metaSnapshotID = "snapshot-id"
	metaETag       = "content-etag"
	metaUpdatedAt  = "updated-at"
	metaExtra      = "extra"
)

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credential chain.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
	HTTPClient      s3.HTTPClient
}

// Store is a state.Store[[]byte] writing one object per Ref.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 snapshot store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *Store) objectKey(ref state.Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	key += ".json"
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	return key, nil
}

func (s *Store) Load(ctx context.Context, ref state.Ref) ([]byte, state.Meta, bool, error) {
	key, err := s.objectKey(ref)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, state.Meta{}, false, nil
		}
		return nil, state.Meta{}, false, fmt.Errorf("s3: get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("s3: read %s: %w", key, err)
	}
	meta, err := decodeMeta(out.Metadata)
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("s3: metadata %s: %w", key, err)
	}
	return payload, meta, true, nil
}

func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot []byte, meta state.Meta) (state.Meta, error) {
	key, err := s.objectKey(ref)
	if err != nil {
		return state.Meta{}, err
	}
	metadata, err := encodeMeta(meta)
	if err != nil {
		return state.Meta{}, fmt.Errorf("s3: metadata %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(snapshot),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	if err != nil {
		return state.Meta{}, fmt.Errorf("s3: put %s: %w", key, err)
	}
	return state.CloneMeta(meta), nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error { return nil }

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func encodeMeta(meta state.Meta) (map[string]string, error) {
	out := map[string]string{}
	if meta.SnapshotID != "" {
		out[metaSnapshotID] = meta.SnapshotID
	}
	if meta.ETag != "" {
		out[metaETag] = meta.ETag
	}
	if !meta.UpdatedAt.IsZero() {
		out[metaUpdatedAt] = meta.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return nil, err
		}
		out[metaExtra] = string(raw)
	}
	return out, nil
}

func decodeMeta(metadata map[string]string) (state.Meta, error) {
	lookup := make(map[string]string, len(metadata))
	for k, v := range metadata {
		lookup[strings.ToLower(k)] = v
	}
	meta := state.Meta{SnapshotID: lookup[metaSnapshotID], ETag: lookup[metaETag]}
	if raw := lookup[metaUpdatedAt]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return state.Meta{}, err
		}
		meta.UpdatedAt = ts
	}
	if raw := lookup[metaExtra]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta.Extra); err != nil {
			return state.Meta{}, err
		}
	}
	return meta, nil
}
