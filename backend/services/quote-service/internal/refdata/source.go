package refdata

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source loads the authoritative reference document.
type Source interface {
	Load(ctx context.Context) (Document, error)
	Name() string
}

// FileSource reads a YAML document from disk.
type FileSource struct {
	path string
}

// NewFileSource returns a source for the YAML file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Document{}, fmt.Errorf("refdata: read %s: %w", s.path, err)
	}
	return DecodeYAML(data)
}

// StaticSource serves an in-memory YAML document, such as the embedded seed.
type StaticSource struct {
	name string
	data []byte
}

// NewStaticSource wraps raw YAML bytes.
func NewStaticSource(name string, data []byte) *StaticSource {
	return &StaticSource{name: name, data: data}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	return DecodeYAML(s.data)
}

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a YAML document stored as an S3 object.
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source returns a source for s3://bucket/key.
func NewS3Source(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("refdata: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *S3Source) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

func (s *S3Source) Load(ctx context.Context) (Document, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return Document{}, fmt.Errorf("refdata: get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Document{}, fmt.Errorf("refdata: read %s: %w", s.Name(), err)
	}
	return DecodeYAML(data)
}
