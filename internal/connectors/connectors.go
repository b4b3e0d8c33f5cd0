package connectors

import (
	"context"
	"fmt"
	"strings"

	"doacoes/internal"
	"doacoes/internal/config"
	gmailconnector "doacoes/internal/connectors/gmail"
	imapconnector "doacoes/internal/connectors/imap"
)

// MailConnector returns the mailbox messages that pass the configured
// receipt filter (see package criteria).
type MailConnector interface {
	FetchReceipts(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// New builds the connector for provider (gmail or imap).
func New(cfg config.Config, provider string) (MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}
