package content

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keithlinneman/mdpreview/internal/cryptoutil"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/pathutil"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// ObjectGetter is the part of *s3.Client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Options struct {
	Logger log.Logger

	// Markdown lives at s3://{Bucket}/{Prefix}/{resource}
	Bucket string
	Prefix string

	// MaxSize is the largest object returned. Zero means DefaultMaxSize.
	MaxSize int64

	// Client overrides the client built from AWSConfig or the default chain.
	Client    ObjectGetter
	AWSConfig *aws.Config
}

// S3Source reads resources from an S3 bucket.
type S3Source struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	maxSize int64
	logger  log.Logger
}

// NewS3Source creates an S3-backed source.
func NewS3Source(ctx context.Context, opts S3Options) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, xerrors.New("Bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	client := opts.Client
	if client == nil {
		var awsCfg aws.Config
		var err error
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			awsCfg, err = config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, xerrors.Wrap(err, "load AWS config")
			}
		}
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Source{
		client:  client,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.Prefix, "/"),
		maxSize: opts.MaxSize,
		logger:  opts.Logger,
	}, nil
}

func (s *S3Source) key(rel string) string {
	return pathutil.JoinKey(s.prefix, rel)
}

// Fetch downloads the object for resource and hashes it.
func (s *S3Source) Fetch(ctx context.Context, resource string) (Result, error) {
	rel, ok := Rel(resource)
	if !ok {
		return Result{}, notFound(resource, nil)
	}
	if !IsMarkdown(rel) {
		return Result{}, ErrNotMarkdown
	}

	key := s.key(rel)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if !errors.As(err, &nsk) {
			s.logger.Warn(ctx, "s3 get object failed", "bucket", s.bucket, "key", key, "err", err)
		}
		return Result{}, notFound(resource, xerrors.Wrapf(err, "get S3 object s3://%s/%s", s.bucket, key))
	}
	defer out.Body.Close()

	data, sum, err := cryptoutil.ReadAllSHA256(out.Body, s.maxSize)
	if err != nil {
		return Result{}, notFound(resource, xerrors.Wrapf(err, "read S3 object s3://%s/%s", s.bucket, key))
	}
	return Result{Text: string(data), Digest: Digest(sum)}, nil
}
