package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store uploads chat images and hands back the (url, public id) pair an image
// message carries. The object key doubles as the public id so the main
// application can delete the media when a conversation is removed.
type Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucket     string
	region     string
	keyPrefix  string
	publicRead bool
}

func NewStore(ctx context.Context, region, bucket, keyPrefix string, publicRead bool) (*Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		region:     region,
		keyPrefix:  keyPrefix,
		publicRead: publicRead,
	}, nil
}

// Upload stores the image and returns its url and public id.
func (s *Store) Upload(ctx context.Context, filename, contentType string, data []byte) (mediaURL, publicID string, err error) {
	key := s.keyPrefix + uuid.NewString() + path.Ext(filename)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", err
	}

	if s.publicRead {
		escaped := url.PathEscape(key)
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), key, nil
	}
	signed, err := s.presignGet(ctx, key, 7*24*time.Hour)
	if err != nil {
		return "", "", err
	}
	return signed, key, nil
}

func (s *Store) presignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p := s3.NewPresignClient(s.client)
	req, err := p.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
