package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// emailTimeout bounds the background delivery of best-effort emails.
const emailTimeout = 15 * time.Second

// EmailService defines the interface for sending transactional emails. Both
// operations are best-effort: callers log failures and carry on.
type EmailService interface {
	SendConfirmation(ctx context.Context, email, nom, prenom string) error
	SendResetCode(ctx context.Context, email, prenom, code string) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendConfirmation welcomes a newly approved member.
func (s *AWSSESEmailService) SendConfirmation(ctx context.Context, email, nom, prenom string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #16a34a; color: white; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Félicitations %s %s !</h1>
        </div>
        <div class="content">
            <p>Votre candidature a été validée avec succès.</p>
            <p>Vous êtes désormais membre de <strong>All For One</strong>. Vous pouvez dès à présent vous connecter à votre espace membre avec vos identifiants.</p>
            <p>Merci de rejoindre notre mission d'éducation et de solidarité.</p>
        </div>
        <div class="footer">
            <p>AFO - All For One | Association pour l'éducation</p>
            <p>Si vous n'êtes pas à l'origine de cette inscription, veuillez ignorer cet email.</p>
        </div>
    </div>
</body>
</html>
`, prenom, nom)

	textBody := fmt.Sprintf(`Félicitations %s %s !

Votre candidature a été validée avec succès. Vous êtes désormais membre de All For One.

Connectez-vous dès maintenant avec vos identifiants pour accéder à votre espace membre.

AFO - All For One | Association pour l'éducation
Si vous n'êtes pas à l'origine de cette inscription, veuillez ignorer cet email.
`, prenom, nom)

	return s.send(ctx, email, "Candidature validée - Bienvenue chez AFO !", htmlBody, textBody)
}

// SendResetCode delivers a password-reset code. The code expires 10 minutes
// after issuance.
func (s *AWSSESEmailService) SendResetCode(ctx context.Context, email, prenom, code string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #ea580c; color: white; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .code { font-size: 36px; font-weight: bold; letter-spacing: 8px; text-align: center; padding: 20px; background-color: #fff7ed; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Réinitialisation du mot de passe</h1>
        </div>
        <div class="content">
            <p>Bonjour %s,</p>
            <p>Nous avons reçu une demande de réinitialisation de mot de passe pour votre compte. Voici votre code :</p>
            <div class="code">%s</div>
            <p>Ce code expire dans <strong>10 minutes</strong>.</p>
            <p>Si vous n'avez pas demandé cette réinitialisation, ignorez cet email : votre mot de passe restera inchangé.</p>
        </div>
        <div class="footer">
            <p>AFO - All For One | Association pour l'éducation</p>
        </div>
    </div>
</body>
</html>
`, prenom, code)

	textBody := fmt.Sprintf(`Bonjour %s,

Nous avons reçu une demande de réinitialisation de mot de passe pour votre compte.

Votre code : %s

Ce code expire dans 10 minutes.

Si vous n'avez pas demandé cette réinitialisation, ignorez cet email : votre mot de passe restera inchangé.
`, prenom, code)

	return s.send(ctx, email, "Code de réinitialisation - AFO", htmlBody, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}
