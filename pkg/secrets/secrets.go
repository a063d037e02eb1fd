// Package secrets resolves the token signing secret from the configured source.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hugh/contact-keeper/pkg/config"
	"github.com/hugh/contact-keeper/pkg/crypto"
)

var ErrEmptySecret = errors.New("resolved secret is empty")

// maxSecretBytes caps what is read from a file or object.
const maxSecretBytes = 64 << 10

// ObjectGetter is the subset of the S3 client used to fetch secrets.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Resolver struct {
	s3     ObjectGetter
	opener *crypto.Encryptor
}

type Option func(*Resolver)

// WithS3 sets the client used for s3:// sources.
func WithS3(client ObjectGetter) Option {
	return func(r *Resolver) { r.s3 = client }
}

// WithEncryptor enables opening "age:" sealed values.
func WithEncryptor(enc *crypto.Encryptor) Option {
	return func(r *Resolver) { r.opener = enc }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewS3Client builds an S3 client from the default AWS chain, preferring
// static keys when both are configured.
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// JWTSecret picks the first configured source: S3 object, file, then literal.
func (r *Resolver) JWTSecret(ctx context.Context, cfg config.JWTConfig) (string, error) {
	var (
		raw string
		err error
	)

	switch {
	case cfg.SecretS3URI != "":
		raw, err = r.fromS3(ctx, cfg.SecretS3URI)
	case cfg.SecretFile != "":
		raw, err = fromFile(cfg.SecretFile)
	default:
		raw = cfg.Secret
	}
	if err != nil {
		return "", err
	}

	secret, err := r.open(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", ErrEmptySecret
	}
	return secret, nil
}

func (r *Resolver) open(value string) (string, error) {
	if !crypto.IsSealed(value) {
		return value, nil
	}
	if r.opener == nil {
		return "", crypto.ErrNoIdentity
	}
	secret, err := r.opener.Open(value)
	if err != nil {
		return "", fmt.Errorf("opening sealed secret: %w", err)
	}
	return strings.TrimSpace(secret), nil
}

func fromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening secret file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSecretBytes))
	if err != nil {
		return "", fmt.Errorf("reading secret file: %w", err)
	}
	return string(data), nil
}

func (r *Resolver) fromS3(ctx context.Context, uri string) (string, error) {
	if r.s3 == nil {
		return "", errors.New("s3 secret source configured without a client")
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", err
	}

	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxSecretBytes))
	if err != nil {
		return "", fmt.Errorf("reading s3 object: %w", err)
	}
	return string(data), nil
}

// ParseS3URI splits s3://bucket/path/to/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parsing s3 uri: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 uri %q has no object key", uri)
	}
	return u.Host, key, nil
}
