package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client sesAPI
	from   string
	to     string
}

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	From            string
	To              string
}

// NewSESMailer uses static credentials when both keys are set, otherwise the
// default AWS credential chain.
func NewSESMailer(ctx context.Context, cfg SESConfig) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(awsCfg), from: cfg.From, to: cfg.To}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if m.from == "" {
		return errors.New("sender email address is not configured")
	}
	if m.to == "" {
		return errors.New("recipient address is not configured")
	}
	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{m.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(msg.Subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(msg.HTML),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(msg.Text),
				},
			},
		},
	}
	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
