// Package storage builds the shared AWS configuration used by the S3
// settings source and the DynamoDB history store.
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSOptions selects region and credentials. Static keys win over a shared
// profile; with neither, the default provider chain is used.
type AWSOptions struct {
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
}

// LoadAWSConfig resolves an aws.Config from opts.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	switch {
	case opts.AccessKey != "" && opts.SecretKey != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	case opts.Profile != "":
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// Clients holds the AWS service clients the server uses.
type Clients struct {
	S3       *s3.Client
	DynamoDB *dynamodb.Client
}

// NewClients creates S3 and DynamoDB clients from one resolved config.
func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		S3:       s3.NewFromConfig(cfg),
		DynamoDB: dynamodb.NewFromConfig(cfg),
	}
}
