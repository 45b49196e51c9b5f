package service

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// EmailService отправляет транзакционные письма
type EmailService interface {
	SendCertificate(ctx context.Context, toEmail, userName, courseTitle, certificateNumber string) error
}

// NoopEmailService используется, когда отправка писем отключена
type NoopEmailService struct{}

func (s *NoopEmailService) SendCertificate(ctx context.Context, toEmail, userName, courseTitle, certificateNumber string) error {
	log.Printf("[EmailService] noop: письмо о сертификате %s на %s не отправлено", certificateNumber, toEmail)
	return nil
}

// ResendEmailService отправляет письма через Resend REST API
type ResendEmailService struct {
	from   string
	client *resend.Client
}

// NewResendEmailService создает сервис отправки писем через Resend
func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// SendCertificate отправляет письмо о выданном сертификате
func (s *ResendEmailService) SendCertificate(ctx context.Context, toEmail, userName, courseTitle, certificateNumber string) error {
	if toEmail == "" || certificateNumber == "" {
		return fmt.Errorf("toEmail and certificateNumber are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: fmt.Sprintf("Сертификат о прохождении курса «%s»", courseTitle),
		Text: fmt.Sprintf("Здравствуйте, %s!\n\nПоздравляем с прохождением курса «%s».\nНомер вашего сертификата: %s.",
			userName, courseTitle, certificateNumber),
		Html: fmt.Sprintf("<p>Здравствуйте, %s!</p><p>Поздравляем с прохождением курса «%s».</p><p>Номер вашего сертификата: <strong>%s</strong>.</p>",
			userName, courseTitle, certificateNumber),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send certificate email: %w", err)
	}
	return nil
}
