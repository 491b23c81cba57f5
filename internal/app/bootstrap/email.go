package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildEmailSender selects the outbound email provider from EMAIL_PROVIDER.
// Unknown or unconfigured providers fall back to the logging stub.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	logger = logging.OrDefault(logger)
	if cfg == nil {
		return notify.NewStubEmailSender(logger), nil
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub email sender")
			return notify.NewStubEmailSender(logger), nil
		}
		logger.Info("email provider configured", "provider", "sendgrid")
		return sender, nil
	case "ses":
		sesCfg := notify.SESConfig{
			Region:           cfg.AWSRegion,
			AccessKeyID:      cfg.AWSAccessKeyID,
			SecretAccessKey:  cfg.AWSSecretAccessKey,
			EndpointOverride: cfg.AWSEndpointOverride,
			FromEmail:        cfg.SendGridFromEmail,
			FromName:         cfg.SendGridFromName,
		}
		client, err := notify.NewSESClient(ctx, sesCfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: ses client: %w", err)
		}
		logger.Info("email provider configured", "provider", "ses", "region", cfg.AWSRegion)
		return notify.NewSESSender(client, sesCfg, logger), nil
	case "", "stub":
		return notify.NewStubEmailSender(logger), nil
	default:
		logger.Warn("unknown EMAIL_PROVIDER; using stub email sender", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger), nil
	}
}
