package blobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
	putOpts int
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putOpts = len(optFns)
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func stubS3(t *testing.T, fake objectAPI) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatalf("credentials not applied")
		}
		return aws.Config{Region: lo.Region}, nil
	}

	applied := &s3.Options{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(applied)
		}
		return fake
	}
	return applied
}

func testS3Config() S3Config {
	return S3Config{
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Bucket:       "gophsend",
		BaseEndpoint: "http://127.0.0.1:9000",
	}
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	opts := stubS3(t, fake)

	s, err := NewS3Store(ctx, testS3Config())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	require.NoError(t, s.Put(ctx, "files/a", strings.NewReader("blob"), 4))
	assert.Equal(t, 1, fake.putOpts, "put must switch to an unsigned payload")
	assert.Contains(t, fake.objects, "gophsend/files/a")

	rc, n, err := s.Get(ctx, "files/a")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "blob", string(data))
	assert.Equal(t, int64(4), n)

	require.NoError(t, s.Delete(ctx, "files/a"))
	_, _, err = s.Get(ctx, "files/a")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}, putErr: errors.New("denied")}
	stubS3(t, fake)

	s, err := NewS3Store(ctx, testS3Config())
	require.NoError(t, err)

	err = s.Put(ctx, "files/a", strings.NewReader("blob"), -1)
	assert.ErrorContains(t, err, "put object: denied")
}

func TestNewS3Store_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), testS3Config())
	assert.ErrorContains(t, err, "no config")
}
