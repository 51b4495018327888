package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/pinme-ledger/internal/config"
	"github.com/pinme-ledger/internal/infrastructure/awscfg"
)

// NewClient creates a DynamoDB client in cfg.AWSRegion. AWS_ENDPOINT_URL, when
// set, sends all traffic to a local instance.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}
