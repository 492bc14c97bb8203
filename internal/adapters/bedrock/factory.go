package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// FromConfig loads the default AWS credential chain for the configured
// region and wraps a Bedrock runtime client.
func FromConfig(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) (*BedrockClient, error) {
	settings := cfg.GetBedrock()
	aws, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(settings.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for region %q: %w", settings.Region, err)
	}
	return NewBedrockClient(bedrockruntime.NewFromConfig(aws), settings, logger.Named("bedrock"), text), nil
}
