package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// S3GetObjectAPI is the subset of the S3 client S3Source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads s3://<bucket>/<prefix><orgID>.json.
type S3Source struct {
	client S3GetObjectAPI
	bucket string
	prefix string
}

// NewS3Source creates an S3-backed settings source.
func NewS3Source(client S3GetObjectAPI, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key holding orgID's settings.
func (s *S3Source) Key(orgID string) string {
	return s.prefix + orgID + ".json"
}

func (s *S3Source) Load(ctx context.Context, orgID string) (*domain.Settings, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(orgID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrSettingsNotFound, s.bucket, s.Key(orgID))
		}
		return nil, fmt.Errorf("getting settings from S3: %w", err)
	}
	defer out.Body.Close()

	var st domain.Settings
	if err := json.NewDecoder(out.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("%w: decoding s3://%s/%s: %v", ErrInvalidSettings, s.bucket, s.Key(orgID), err)
	}
	return prepare(orgID, &st)
}
