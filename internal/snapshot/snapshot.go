// Package snapshot exports the open board to S3-compatible object storage
// as a JSON document and reads exported documents back.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// FormatVersion is written into every snapshot.
const FormatVersion = 1

// Snapshot errors.
var (
	ErrNoBoard          = errors.New("no board is open")
	ErrBucketNotFound   = errors.New("bucket does not exist")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrEndpointRequired = errors.New("s3 endpoint is required")
	ErrBucketRequired   = errors.New("s3 bucket is required")
)

// Config locates the bucket. It works with AWS S3 and with MinIO and other
// S3-compatible services.
type Config struct {
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Region       string `yaml:"region" mapstructure:"region"`
	AccessKey    string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey    string `yaml:"secret_key" mapstructure:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// Validate checks that the endpoint and bucket are set.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("invalid s3 endpoint: %w", err)
	}
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}

// NewClient builds an S3 client for cfg. Static credentials are used when
// an access key is configured; otherwise the default AWS chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// ObjectStore is the subset of *s3.Client used by Exporter.
type ObjectStore interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Board      *types.Board  `json:"board"`
	Lists      []*types.List `json:"lists"`
	Cards      []*types.Card `json:"cards"`
}

// Source is the read side of the entity state store.
type Source interface {
	CurrentBoard() *types.Board
	Lists() []*types.List
	Cards() []*types.Card
}

// Capture copies the open board of src. It returns ErrNoBoard when no
// board is open.
func Capture(src Source, now time.Time) (*Snapshot, error) {
	b := src.CurrentBoard()
	if b == nil {
		return nil, ErrNoBoard
	}
	lists, cards := src.Lists(), src.Cards()
	if lists == nil {
		lists = []*types.List{}
	}
	if cards == nil {
		cards = []*types.Card{}
	}
	return &Snapshot{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Board:      b,
		Lists:      lists,
		Cards:      cards,
	}, nil
}

// Key returns the object key of a snapshot: boards/<board id>/<UTC time>.json.
func Key(s *Snapshot) string {
	return fmt.Sprintf("boards/%s/%s.json", s.Board.BoardID, s.ExportedAt.UTC().Format("20060102T150405Z"))
}

// Exporter writes and reads snapshots in one bucket.
type Exporter struct {
	store   ObjectStore
	bucket  string
	timeout time.Duration
}

// NewExporter returns an exporter using store and bucket. Each request is
// bounded by a 10 second timeout.
func NewExporter(store ObjectStore, bucket string) *Exporter {
	return &Exporter{store: store, bucket: bucket, timeout: 10 * time.Second}
}

// EnsureBucket checks that the bucket exists.
func (e *Exporter) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	_, err := e.store.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(e.bucket)})
	if err != nil {
		if isCode(err, "NotFound", "NoSuchBucket") {
			return fmt.Errorf("%s: %w", e.bucket, ErrBucketNotFound)
		}
		return fmt.Errorf("checking bucket %s: %w", e.bucket, err)
	}
	return nil
}

// Export uploads s and returns its key.
func (e *Exporter) Export(ctx context.Context, s *Snapshot) (string, error) {
	if s == nil || s.Board == nil {
		return "", ErrNoBoard
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	key := Key(s)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	_, err = e.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

// Load downloads the snapshot stored at key.
func (e *Exporter) Load(ctx context.Context, key string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	resp, err := e.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isCode(err, "NoSuchKey", "NotFound") {
			return nil, fmt.Errorf("%s: %w", key, ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &s, nil
}

func isCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}
