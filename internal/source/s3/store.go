package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smallbiznis/sparkload/internal/source/domain"
)

const Scheme = "s3://"

// API is the subset of the S3 client the store calls.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds client construction parameters.
type Config struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// Store lists and reads objects below bucket/prefix.
type Store struct {
	client API
	bucket string
	prefix string
}

// NewClient builds an S3 client from the default credential chain.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-west-2"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ParseURI splits s3://bucket/prefix. The prefix is normalised to end with a slash.
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", fmt.Errorf("%w: %s is not an s3 uri", domain.ErrInvalidRoot, uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: missing bucket in %s", domain.ErrInvalidRoot, uri)
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return bucket, prefix, nil
}

// New returns a store for uri using client.
func New(client API, uri string) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *Store) Root() string { return Scheme + s.bucket + "/" + s.prefix }

func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.Root(), err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return nil, err
	}
	return out.Body, nil
}

var _ domain.Source = (*Store)(nil)
