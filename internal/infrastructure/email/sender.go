// Package email delivers payment receipts through Resend.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	financeapp "github.com/arflow/backend/internal/application/finance"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Config holds the Resend settings
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides the Resend API endpoint
	BaseURL string
}

// ResendSender sends receipts with the Resend API
type ResendSender struct {
	client   *resend.Client
	from     string
	renderer *ReceiptRenderer
	logger   *zap.Logger
}

// NewResendSender creates a new ResendSender
func NewResendSender(cfg Config, logger *zap.Logger) (*ResendSender, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, errors.New("email: api key and sender address are required")
	}
	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("email: invalid base url: %w", err)
		}
		client.BaseURL = u
	}
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &ResendSender{
		client:   client,
		from:     from,
		renderer: NewReceiptRenderer(),
		logger:   logger,
	}, nil
}

// SendPaymentReceipt renders and sends one receipt
func (s *ResendSender) SendPaymentReceipt(ctx context.Context, receipt financeapp.PaymentReceipt) error {
	html, err := s.renderer.Render(receipt)
	if err != nil {
		return err
	}
	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{receipt.Email},
		Subject: s.renderer.Subject(receipt),
		Html:    html,
		Tags:    []resend.Tag{{Name: "category", Value: "payment_receipt"}},
	})
	if err != nil {
		return fmt.Errorf("email: send receipt: %w", err)
	}
	s.logger.Debug("Receipt email accepted",
		zap.String("payment_number", receipt.PaymentNumber),
		zap.String("email_id", resp.Id))
	return nil
}

// LogSender stands in when email is disabled. It only logs.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendPaymentReceipt logs the receipt it would have sent
func (s *LogSender) SendPaymentReceipt(_ context.Context, receipt financeapp.PaymentReceipt) error {
	s.logger.Info("Email disabled, receipt not sent",
		zap.String("payment_number", receipt.PaymentNumber),
		zap.String("to", receipt.Email))
	return nil
}

var (
	_ financeapp.ReceiptSender = (*ResendSender)(nil)
	_ financeapp.ReceiptSender = (*LogSender)(nil)
)
