package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/target/disclosure-collector/config"
)

// LoadAWSConfig resolves AWS credentials and region through the default provider chain.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig, logger *slog.Logger) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "aws config loaded",
			"region", awsCfg.Region,
			"bucket", cfg.Bucket,
			"custom_endpoint", cfg.Endpoint != "",
		)
	}
	return awsCfg, nil
}
