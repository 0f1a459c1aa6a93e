// Package photos turns stored photo keys into short-lived S3 GET URLs.
package photos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DefaultTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Options are the object storage settings.
type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	TTL          time.Duration
}

// Presigner signs GET requests for one bucket. The S3 client is built on
// first use and reused afterwards.
type Presigner struct {
	opts Options

	mu     sync.Mutex
	client *s3.PresignClient
}

func NewPresigner(opts Options) *Presigner {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Presigner{opts: opts}
}

func (p *Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.opts.AccessKey,
			p.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	p.client = newS3PresignClient(client)
	return p.client, nil
}

// URL returns a presigned GET URL for key. An empty key has no photo and
// yields "".
func (p *Presigner) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	pc, err := p.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	bucket := p.opts.Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(p.opts.TTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return req.URL, nil
}
