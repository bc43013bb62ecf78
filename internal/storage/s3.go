package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"prospect-tracker-api/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Storage struct {
	client     *s3.S3
	bucket     string
	baseURL    string
	publicRead bool
}

func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	s3cfg := cfg.Storage.S3

	awsConfig := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(s3cfg.AccessKey, s3cfg.SecretKey, ""),
		Region:           aws.String(s3cfg.Region),
		DisableSSL:       aws.Bool(!s3cfg.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}
	if s3cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s3cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		client:     s3.New(sess),
		bucket:     s3cfg.Bucket,
		baseURL:    publicBaseURL(s3cfg),
		publicRead: s3cfg.PublicRead,
	}, nil
}

// publicBaseURL prefers the configured CDN/base URL, then a path-style
// endpoint URL, then the regional virtual-hosted AWS URL.
func publicBaseURL(c config.S3Config) string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	if c.Endpoint != "" {
		endpoint := strings.TrimRight(c.Endpoint, "/")
		if !strings.Contains(endpoint, "://") {
			scheme := "http"
			if c.UseSSL {
				scheme = "https"
			}
			endpoint = scheme + "://" + endpoint
		}
		return endpoint + "/" + c.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
}

func (s *S3Storage) Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = aws.String(s3.ObjectCannedACLPublicRead)
	}

	_, err := s.client.PutObjectWithContext(ctx, input)
	return err
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.RequestFailure
		if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Storage) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}
