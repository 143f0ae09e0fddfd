// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"

	"medication-alerts/internal/common/config"
)

// SESClient sends pre-built MIME messages through Amazon SES.
type SESClient struct {
	client *ses.Client
}

// NewSESClient loads credentials from the default AWS chain for cfg.Region.
func NewSESClient(ctx context.Context, cfg config.AWSConfig) (*SESClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var opts []func(*ses.Options)
	if cfg.SES.Endpoint != "" {
		opts = append(opts, func(o *ses.Options) {
			o.EndpointResolver = ses.EndpointResolverFromURL(cfg.SES.Endpoint)
		})
	}
	return &SESClient{client: ses.NewFromConfig(awsCfg, opts...)}, nil
}

func (s *SESClient) SendRawEmail(ctx context.Context, input *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	return s.client.SendRawEmail(ctx, input, optFns...)
}
