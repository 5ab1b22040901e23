package receipt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Storage persists uploaded receipt photos and returns the path recorded on
// the round.
type Storage interface {
	Save(ctx context.Context, roundID int64, filename, contentType string, body io.Reader, size int64) (string, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Configured reports whether enough of the config is set to talk to a bucket.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores receipts in an S3-compatible bucket, keyed by round and a
// random suffix so re-uploads never collide.
type S3Storage struct {
	client s3Client
	bucket string
}

func NewS3Storage(cfg S3Config) *S3Storage {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3Storage{client: s3.New(opts), bucket: cfg.Bucket}
}

func (s *S3Storage) Save(ctx context.Context, roundID int64, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := fmt.Sprintf("receipts/%d/%s%s", roundID, uuid.NewString(), safeExt(filename))

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	return key, nil
}

// DirStorage stores receipts on the local filesystem, for single-box
// deployments without a bucket.
type DirStorage struct {
	root string
}

func NewDirStorage(root string) *DirStorage {
	return &DirStorage{root: root}
}

func (d *DirStorage) Save(ctx context.Context, roundID int64, filename, contentType string, body io.Reader, size int64) (string, error) {
	rel := fmt.Sprintf("receipts/%d/%s%s", roundID, uuid.NewString(), safeExt(filename))
	full := filepath.Join(d.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	return rel, nil
}

// safeExt keeps the upload's extension but nothing else of its filename.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic", ".pdf":
		return ext
	default:
		return ".bin"
	}
}
