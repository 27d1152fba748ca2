package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

const DefaultS3BatchSize = 100

// ObjectPutter is the part of *s3.Client the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3-compatible archive (AWS, MinIO).
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	BatchSize    int
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Sink collects records and uploads them as JSONL objects, one object per
// batch, under audit/YYYY/MM/DD/.
type S3Sink struct {
	client    ObjectPutter
	bucket    string
	batchSize int
	now       func() time.Time

	mu      sync.Mutex
	pending []models.AuditRecord
}

// NewS3Client builds an S3 client with static credentials, the way MinIO
// deployments expect.
func NewS3Client(ctx context.Context, o S3Options) (ObjectPutter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	}), nil
}

func NewS3Sink(client ObjectPutter, o S3Options) *S3Sink {
	size := o.BatchSize
	if size <= 0 {
		size = DefaultS3BatchSize
	}
	return &S3Sink{client: client, bucket: o.Bucket, batchSize: size, now: time.Now}
}

func (s *S3Sink) Append(ctx context.Context, rec models.AuditRecord) error {
	return s.AppendBatch(ctx, []models.AuditRecord{rec})
}

// AppendBatch buffers recs and uploads once a full batch is pending. On a
// failed upload recs are removed again so the caller may retry them.
func (s *S3Sink) AppendBatch(ctx context.Context, recs []models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := len(s.pending)
	s.pending = append(s.pending, recs...)
	if len(s.pending) < s.batchSize {
		return nil
	}
	if err := s.uploadLocked(ctx); err != nil {
		s.pending = s.pending[:prev]
		return err
	}
	return nil
}

// Flush uploads whatever is pending.
func (s *S3Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadLocked(ctx)
}

func (s *S3Sink) uploadLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, rec := range s.pending {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
	}

	key := s.objectKey()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *S3Sink) objectKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("audit/%04d/%02d/%02d/%s.jsonl", d.Year(), d.Month(), d.Day(), uuid.New())
}
