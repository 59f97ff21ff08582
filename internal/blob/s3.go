package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config carries the connection settings for an S3-compatible backend.
// BaseEndpoint is set when talking to MinIO or another non-AWS endpoint;
// leave it empty for real AWS.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
}

// S3Store stores objects in an S3-compatible bucket. Objects are uploaded
// with public-read semantics assumed on the bucket; the document format
// embeds the returned URLs directly.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	log     *slog.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds a client from static credentials. Path-style addressing
// is forced when a custom endpoint is configured, since MinIO does not serve
// virtual-hosted buckets out of the box.
func NewS3Store(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("blob.NewS3Store: %w", err)
	}

	usePathStyle := cfg.BaseEndpoint != ""
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = usePathStyle
	})

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.BaseEndpoint != "" {
		baseURL = strings.TrimSuffix(cfg.BaseEndpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		log:     log,
	}, nil
}

func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + key
}

func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("blob.S3Store.Upload %q: %w", key, err)
	}

	s.log.Debug("uploaded blob", "key", key, "bytes", len(data))
	return s.URL(key), nil
}

func (s *S3Store) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("blob.S3Store.Fetch %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("blob.S3Store.Fetch %q: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("blob.S3Store.Delete %q: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("blob.S3Store.List %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// keyFromURL recovers the object key from a URL this store issued. URLs from
// a different endpoint or bucket are rejected so a misconfigured restore
// cannot silently read someone else's objects.
func (s *S3Store) keyFromURL(rawURL string) (string, error) {
	if key, ok := strings.CutPrefix(rawURL, s.baseURL+"/"); ok && key != "" {
		return key, nil
	}
	if _, err := url.Parse(rawURL); err != nil {
		return "", fmt.Errorf("blob.S3Store: invalid blob url %q: %w", rawURL, err)
	}
	return "", fmt.Errorf("blob.S3Store: url %q is not in bucket %q", rawURL, s.bucket)
}
