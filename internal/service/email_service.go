package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends learner notifications
type Mailer interface {
	IsEnabled() bool
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
	SendCompletionEmail(ctx context.Context, toEmail, toName, gameTitle string, score int) error
}

// SESAPI is the part of the SES client the email service uses
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     SESAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *slog.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *slog.Logger) (*EmailService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "email")
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

// NewEmailServiceWithClient builds an enabled service around client
func NewEmailServiceWithClient(client SESAPI, fromEmail, fromName, appBaseURL string, logger *slog.Logger) *EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail greets a newly registered learner
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.logger.Debug("skipping welcome email", "to", toEmail)
		return nil
	}

	subject := "Welcome to ULLAS!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #e8772e; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #e8772e; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to ULLAS! / उल्लास में आपका स्वागत है!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Your account is ready. Play the letter, number and word games in English or Hindi, at your own pace.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Start learning</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from ULLAS. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Your account is ready. Play the letter, number and word games in English or Hindi, at your own pace.

Start learning: %s

---
This is an automated email from ULLAS. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendCompletionEmail congratulates a learner who finished every level of a game
func (s *EmailService) SendCompletionEmail(ctx context.Context, toEmail, toName, gameTitle string, score int) error {
	if !s.enabled {
		s.logger.Debug("skipping completion email", "to", toEmail)
		return nil
	}

	subject := fmt.Sprintf("You completed %s!", gameTitle)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e9e5b; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Well Done! / बहुत बढ़िया!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>You reached the final level of <strong>%s</strong> with a best score of <strong>%d</strong>.</p>
			<p>Keep going with the other games at <a href="%s">%s</a>.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from ULLAS. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, gameTitle, score, s.appBaseURL, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

You reached the final level of %s with a best score of %d.

Keep going with the other games: %s

---
This is an automated email from ULLAS. Please do not reply.
`, toName, gameTitle, score, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	s.logger.Info("email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
