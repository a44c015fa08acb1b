package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const presignExpiry = 15 * time.Minute

// S3Storage implements Store on an S3 bucket.
type S3Storage struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucketName    string
	publicBaseURL string // empty means presigned GET URLs
}

// NewS3Storage loads the default AWS credential chain for region.
func NewS3Storage(ctx context.Context, region, bucketName, publicBaseURL string) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	storeLog.Infof("Initialized S3Storage for bucket %s (%s)", bucketName, region)
	return &S3Storage{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucketName:    bucketName,
		publicBaseURL: publicBaseURL,
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, key string, contentType string, data io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	// the SDK needs a seekable body to compute the checksum
	body, ok := data.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("failed to buffer object %s: %w", key, err)
		}
		body = bytes.NewReader(buf)
	}

	input := &s3.PutObjectInput{
		Bucket:            aws.String(s.bucketName),
		Key:               aws.String(key),
		Body:              body,
		ContentType:       aws.String(contentType),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("couldn't upload object with key: %s, AWS error: %w", key, err)
	}
	storeLog.Debugf("Uploaded s3://%s/%s", s.bucketName, key)
	return s.URL(ctx, key)
}

func (s *S3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: '%s'", ErrAssetNotFound, key)
		}
		return nil, fmt.Errorf("couldn't download object with key: %s, AWS error: %w", key, err)
	}
	return resp.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("couldn't delete object with key: %s, AWS error: %w", key, err)
	}
	return nil
}

func (s *S3Storage) URL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return req.URL, nil
}
