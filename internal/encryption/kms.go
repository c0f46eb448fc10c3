package encryption

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSAPI is the subset of the KMS client used here
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSService encrypts values with an AWS KMS key
type KMSService struct {
	client KMSAPI
	keyID  string
}

// NewKMSService creates a KMSService using the default AWS credential chain
func NewKMSService(ctx context.Context, keyID, region string) (*KMSService, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewKMSServiceWithClient(kms.NewFromConfig(cfg), keyID), nil
}

// NewKMSServiceWithClient creates a KMSService around an existing client
func NewKMSServiceWithClient(client KMSAPI, keyID string) *KMSService {
	return &KMSService{client: client, keyID: keyID}
}

// Encrypt encrypts plaintext with the configured key
func (s *KMSService) Encrypt(ctx context.Context, plaintext string) (*EncryptedData, error) {
	result, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(s.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encryption failed: %w", err)
	}

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(result.CiphertextBlob),
		Metadata:       newMetadata(s.Algorithm(), s.keyID),
	}, nil
}

// Decrypt decrypts a KMS ciphertext blob
func (s *KMSService) Decrypt(ctx context.Context, encrypted *EncryptedData) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
		KeyId:          aws.String(s.keyID),
	})
	if err != nil {
		return "", fmt.Errorf("KMS decryption failed: %w", err)
	}

	return string(result.Plaintext), nil
}

// Algorithm returns "aws-kms"
func (s *KMSService) Algorithm() string {
	return "aws-kms"
}

// KeyID returns the KMS key ID
func (s *KMSService) KeyID() string {
	return s.keyID
}

var _ Service = (*KMSService)(nil)
