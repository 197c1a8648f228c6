package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// deleteBatchSize is the most keys one DeleteObjects call accepts.
const deleteBatchSize = 1000

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3Options struct {
	Bucket string
	// PublicURL is the base objects are served from, e.g. a CDN or R2 public bucket domain.
	PublicURL string
	Folder    string
}

// S3Store keeps images in an S3 compatible bucket such as AWS S3 or Cloudflare R2.
type S3Store struct {
	client    S3API
	bucket    string
	publicURL string
	folder    string
	logger    zerolog.Logger
}

func NewS3Store(client S3API, opts S3Options) *S3Store {
	folder := strings.Trim(opts.Folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}
	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		folder:    folder,
		logger:    log.With().Str("component", "mediaStore").Str("bucket", opts.Bucket).Logger(),
	}
}

type ClientOptions struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds a client from static credentials when given, otherwise
// from the default AWS credential chain. A non-empty endpoint points the
// client at an S3 compatible host.
func NewS3Client(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) Upload(ctx context.Context, u Upload) (*Object, error) {
	if err := ValidateUpload(u); err != nil {
		return nil, err
	}

	key := objectKey(s.folder, uuid.NewString(), u.Filename, u.ContentType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          u.Body,
		ContentType:   aws.String(normalizeContentType(u.ContentType)),
		ContentLength: aws.Int64(u.Size),
	})
	if err != nil {
		recordOperation("upload", err)
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	recordOperation("upload", nil)

	s.logger.Info().Str("key", key).Int64("size", u.Size).Msg("image uploaded")
	return &Object{URL: s.publicURL + "/" + key, PublicID: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	recordOperation("delete", err)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}
	return nil
}

// DeleteMany removes every object in as few calls as the API allows. Any key
// the host refuses to delete fails the whole call.
func (s *S3Store) DeleteMany(ctx context.Context, publicIDs []string) error {
	for start := 0; start < len(publicIDs); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(publicIDs))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, id := range publicIDs[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(id)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err == nil && out != nil && len(out.Errors) > 0 {
			err = deleteErrors(out.Errors)
		}
		recordOperation("delete_many", err)
		if err != nil {
			return fmt.Errorf("delete %d objects: %w", len(objects), err)
		}
	}

	if len(publicIDs) > 0 {
		s.logger.Info().Int("count", len(publicIDs)).Msg("images deleted")
	}
	return nil
}

func deleteErrors(failures []types.Error) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(f.Key), aws.ToString(f.Message)))
	}
	return errors.Join(errs...)
}
