// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"arena-pot-ledger/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const proofPrefix = "proofs/"

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2ProofArchive keeps settlement proofs in a Cloudflare R2 bucket.
type R2ProofArchive struct {
	client     ObjectPutter
	bucket     string
	cdnBaseURL string
}

func NewR2ProofArchive(ctx context.Context, cfg config.Archive) (*R2ProofArchive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	base := cfg.CDNBaseURL
	if base == "" {
		base = endpoint + "/" + cfg.Bucket
	}
	return NewProofArchive(client, cfg.Bucket, base), nil
}

// NewProofArchive wraps any S3 compatible client.
func NewProofArchive(client ObjectPutter, bucket, baseURL string) *R2ProofArchive {
	return &R2ProofArchive{
		client:     client,
		bucket:     bucket,
		cdnBaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ArchiveProof uploads proof under proofs/<settlementID>.json and returns its public URL.
func (a *R2ProofArchive) ArchiveProof(ctx context.Context, settlementID string, proof []byte) (string, error) {
	key := proofPrefix + settlementID + ".json"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(proof),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload proof to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.cdnBaseURL, key), nil
}
