package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultS3Region is used when no region is configured.
const DefaultS3Region = "us-east-1"

// PutObjectAPI is the subset of the S3 client used by S3Exporter.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads each record as <prefix>/<server>/<instance>-<time>.json.
type S3Exporter struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Exporter builds an S3 client from the default AWS credential chain,
// overridden by opts when static keys or a custom endpoint are given.
func NewS3Exporter(ctx context.Context, bucket, prefix string, opts S3Options) (*S3Exporter, error) {
	if bucket == "" {
		return nil, fmt.Errorf("export: s3 target requires a bucket")
	}

	region := opts.Region
	if region == "" {
		region = DefaultS3Region
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("export: load AWS config: %w", err)
	}

	var client *s3.Client
	if opts.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // Required for localstack/MinIO
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return NewS3ExporterWithClient(client, bucket, prefix), nil
}

// NewS3ExporterWithClient uses an existing client.
func NewS3ExporterWithClient(client PutObjectAPI, bucket, prefix string) *S3Exporter {
	return &S3Exporter{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the key rec is stored under.
func (e *S3Exporter) ObjectKey(rec Record) string {
	name := timeKey(rec.Snapshot.Taken) + ".json"
	if rec.InstanceID != "" {
		name = rec.InstanceID + "-" + name
	}
	return path.Join(e.prefix, rec.Server, name)
}

// Export uploads rec.
func (e *S3Exporter) Export(ctx context.Context, rec Record) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}

	key := e.ObjectKey(rec)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("export: put s3://%s/%s: %w", e.bucket, key, err)
	}
	return nil
}

// Close is a no-op.
func (e *S3Exporter) Close() error { return nil }
