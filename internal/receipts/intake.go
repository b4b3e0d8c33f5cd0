package receipts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/connectors"
	"doacoes/internal/logger"
	"doacoes/internal/objectstore"
	"doacoes/internal/storage"
)

const (
	StatusPending    = "pending"
	StatusReconciled = "reconciled"
	StatusIgnored    = "ignored"

	lastFetchKey = "receipts.lastFetchAt"
)

type Intake struct {
	db        *storage.DB
	connector connectors.MailConnector
	store     objectstore.Store
	now       func() time.Time
	log       *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	Skipped int
}

func NewIntake(db *storage.DB, connector connectors.MailConnector, store objectstore.Store, log *zap.Logger) *Intake {
	return &Intake{db: db, connector: connector, store: store, now: time.Now, log: logger.OrNop(log)}
}

// FetchAndStore pulls up to max messages from label and records each one
// as a pending receipt. Messages already seen with the same content are
// skipped.
func (i *Intake) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := i.connector.FetchReceipts(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		stored, err := i.storeMessage(ctx, msg)
		if err != nil {
			return result, err
		}
		if stored {
			result.Stored++
		} else {
			result.Skipped++
		}
	}

	if err := i.db.SetMetadata(lastFetchKey, i.now().UTC().Format(time.RFC3339)); err != nil {
		i.log.Warn("failed to record fetch time", zap.Error(err))
	}
	return result, nil
}

func (i *Intake) storeMessage(ctx context.Context, msg internal.FetchedMailMessage) (bool, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	existing, err := i.db.GetReceipt(msg.Provider, msg.MessageID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Hash == hash {
		return false, nil
	}

	row := internal.ReceiptRow{
		Provider:   msg.Provider,
		MessageID:  msg.MessageID,
		Subject:    msg.Subject,
		Sender:     msg.From,
		ReceivedAt: msg.ReceivedAt,
		Hash:       hash,
		Status:     StatusPending,
	}

	extraction, err := ExtractReceipt(msg.Raw)
	if err != nil {
		i.log.Warn("unreadable receipt email", zap.String("messageId", msg.MessageID), zap.Error(err))
	} else {
		row.DetectedAmount = extraction.Amount
		if row.Subject == "" {
			row.Subject = extraction.Subject
		}
	}

	path, err := i.storeFile(ctx, hash, msg.Raw, extraction.Attachments)
	if err != nil {
		return false, err
	}
	row.StoragePath = &path

	saved, err := i.db.UpsertReceipt(row)
	if err != nil {
		return false, err
	}
	i.log.Info("receipt stored",
		zap.Int("id", saved.ID),
		zap.String("provider", saved.Provider),
		zap.String("path", path),
		zap.Bool("amountDetected", saved.DetectedAmount != nil),
	)
	return true, nil
}

// storeFile keeps the first receipt attachment, or the raw message when
// the email carries none.
func (i *Intake) storeFile(ctx context.Context, hash string, raw []byte, attachments []Attachment) (string, error) {
	if len(attachments) > 0 {
		att := attachments[0]
		path := objectstore.GeneratePath(objectstore.BucketReceipts, att.Extension(), i.now())
		return i.store.Put(ctx, objectstore.BucketReceipts, path, att.Data, att.ContentType)
	}
	return i.store.Put(ctx, objectstore.BucketReceipts, "email/"+hash+".eml", raw, "message/rfc822")
}

func (i *Intake) LastFetchAt() (*string, error) {
	return i.db.GetMetadata(lastFetchKey)
}

func (i *Intake) ListPending(limit int) ([]internal.ReceiptRow, error) {
	return i.db.ListReceiptsByStatus(StatusPending, limit)
}

func (i *Intake) MarkReconciled(id int) error {
	return i.db.UpdateReceiptStatus(id, StatusReconciled)
}

func (i *Intake) MarkIgnored(id int) error {
	return i.db.UpdateReceiptStatus(id, StatusIgnored)
}
