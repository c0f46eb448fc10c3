package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/takutakahashi/trackerctl/pkg/utils"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store keeps one profile's credentials in a single JSON object
type S3Store struct {
	client S3API
	bucket string
	key    string
	mutex  sync.Mutex
}

// NewS3Store creates an S3Store from cfg, verifying that the bucket is reachable
func NewS3Store(ctx context.Context, cfg S3Config, profile string, log logrus.FieldLogger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		// S3-compatible services
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket '%s': %w", cfg.Bucket, err)
	}

	store := NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix, profile)
	log.Debugf("[STORE] S3 credential store initialized: bucket=%s, key=%s", cfg.Bucket, store.key)
	return store, nil
}

// NewS3StoreWithClient creates an S3Store around an existing client
func NewS3StoreWithClient(client S3API, bucket, prefix, profile string) *S3Store {
	if prefix == "" {
		prefix = "trackerctl/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if profile == "" {
		profile = "default"
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		key:    prefix + profile + ".json",
	}
}

// Get returns the value stored under key
func (s *S3Store) Get(key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set stores value under key
func (s *S3Store) Set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove deletes key
func (s *S3Store) Remove(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// Close is a no-op; the S3 client needs no cleanup
func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) load() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to load credentials from S3: %w", err)
	}
	defer func() {
		_ = result.Body.Close()
	}()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 response: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return doc.Values, nil
}

func (s *S3Store) save(values map[string]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := utils.MarshalJSONString(fileDocument{Values: values, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.key),
		Body:                 bytes.NewReader([]byte(body)),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials to S3: %w", err)
	}
	return nil
}
