package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "medication-alerts/internal/common/aws"
	"medication-alerts/internal/common/config"
)

// SESService is the subset of the SES client the transport needs.
type SESService interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESTransport delivers through Amazon SES. Credentials come from the default
// AWS chain, so Authenticate has nothing to do.
type SESTransport struct {
	client SESService
}

func NewSESTransport(ctx context.Context, cfg config.AWSConfig) (*SESTransport, error) {
	client, err := awsclient.NewSESClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SESTransport{client: client}, nil
}

func NewSESTransportWithClient(client SESService) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Name() string { return "ses" }

func (t *SESTransport) Dial(ctx context.Context) (Session, error) {
	return &sesSession{client: t.client}, nil
}

type sesSession struct {
	client SESService
}

func (s *sesSession) Authenticate(ctx context.Context) error { return nil }

func (s *sesSession) Send(ctx context.Context, from string, to []string, msg []byte) error {
	_, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(from),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: msg},
	})
	if err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}
	return nil
}

func (s *sesSession) Close() error { return nil }
