package backends

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

func init() {
	storage.Register(storage.Definition{
		Name:        "s3",
		Description: "Stores files as objects in an S3-compatible bucket",
		Open: func(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
			client, err := newS3Client(ctx, cfg.S3)
			if err != nil {
				return nil, err
			}
			return NewS3(client, cfg.S3.Bucket, cfg.S3.Prefix, cfg.Widget.MaxFileSize), nil
		},
	})
}

// objectAPI is the subset of the S3 client the backend calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

func newS3Client(ctx context.Context, c config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	}), nil
}

// S3 stores each file as the object <prefix><name>.
type S3 struct {
	client  objectAPI
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3 creates an S3 backend on top of an existing client.
func NewS3(client objectAPI, bucket, prefix string, maxSize int64) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, maxSize: maxSize}
}

func (b *S3) key(name string) string {
	return b.prefix + name
}

func (b *S3) Upload(ctx context.Context, f uploader.File) (string, error) {
	data, err := readAll(f, b.maxSize)
	if err != nil {
		return "", err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(f.Name())),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(f.ContentType()),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", f.Name(), err)
	}
	return savedMessage(f), nil
}

func (b *S3) Delete(ctx context.Context, f uploader.File) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(f.Name())),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", f.Name(), err)
	}
	return nil
}

// List returns the names of all objects under the prefix.
func (b *S3) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), b.prefix))
		}
	}
	return names, nil
}

func (b *S3) Close() error { return nil }
