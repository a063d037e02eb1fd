package secrets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hugh/contact-keeper/pkg/config"
	"github.com/hugh/contact-keeper/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	calls   int
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestJWTSecret_Literal(t *testing.T) {
	secret, err := NewResolver().JWTSecret(context.Background(), config.JWTConfig{Secret: "  literal \n"})
	require.NoError(t, err)
	assert.Equal(t, "literal", secret)
}

func TestJWTSecret_Empty(t *testing.T) {
	_, err := NewResolver().JWTSecret(context.Background(), config.JWTConfig{})
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestJWTSecret_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt.secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	secret, err := NewResolver().JWTSecret(context.Background(), config.JWTConfig{
		Secret:     "ignored",
		SecretFile: path,
	})
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)
}

func TestJWTSecret_MissingFile(t *testing.T) {
	_, err := NewResolver().JWTSecret(context.Background(), config.JWTConfig{
		SecretFile: filepath.Join(t.TempDir(), "absent"),
	})
	assert.Error(t, err)
}

func TestJWTSecret_S3TakesPrecedence(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"vault/keys/jwt": "from-s3"}}
	r := NewResolver(WithS3(client))

	secret, err := r.JWTSecret(context.Background(), config.JWTConfig{
		Secret:      "ignored",
		SecretFile:  "/does/not/matter",
		SecretS3URI: "s3://vault/keys/jwt",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-s3", secret)
	assert.Equal(t, 1, client.calls)
}

func TestJWTSecret_S3Errors(t *testing.T) {
	r := NewResolver(WithS3(&fakeS3{objects: map[string]string{}}))
	_, err := r.JWTSecret(context.Background(), config.JWTConfig{SecretS3URI: "s3://vault/missing"})
	assert.Error(t, err)

	_, err = NewResolver().JWTSecret(context.Background(), config.JWTConfig{SecretS3URI: "s3://vault/jwt"})
	assert.Error(t, err)
}

func TestJWTSecret_Sealed(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	sealed, err := enc.Seal("sealed-secret")
	require.NoError(t, err)

	secret, err := NewResolver(WithEncryptor(enc)).JWTSecret(context.Background(), config.JWTConfig{Secret: sealed})
	require.NoError(t, err)
	assert.Equal(t, "sealed-secret", secret)

	_, err = NewResolver().JWTSecret(context.Background(), config.JWTConfig{Secret: sealed})
	assert.ErrorIs(t, err, crypto.ErrNoIdentity)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{uri: "s3://bucket/key", bucket: "bucket", key: "key"},
		{uri: "s3://bucket/nested/path/key.txt", bucket: "bucket", key: "nested/path/key.txt"},
		{uri: "s3://bucket", wantErr: true},
		{uri: "s3://bucket/", wantErr: true},
		{uri: "https://bucket/key", wantErr: true},
		{uri: "s3:///key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}
