// Package listener polls the school mailbox for emailed receipts.
package listener

import (
	"context"
	"time"

	"go.uber.org/zap"

	"doacoes/internal/config"
	"doacoes/internal/logger"
	"doacoes/internal/receipts"
)

type Fetcher interface {
	FetchAndStore(ctx context.Context, label string, max int) (receipts.FetchResult, error)
}

type Service struct {
	fetcher  Fetcher
	label    string
	max      int
	interval time.Duration
	log      *zap.Logger
}

func NewService(fetcher Fetcher, cfg config.Config, log *zap.Logger) *Service {
	interval := time.Duration(cfg.ReceiptListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		fetcher:  fetcher,
		label:    cfg.ReceiptListenerLabel,
		max:      cfg.ReceiptListenerFetchMax,
		interval: interval,
		log:      logger.OrNop(log),
	}
}

// Run fetches once immediately and then every interval until ctx is done.
// Cycle errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	for {
		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.fetcher.FetchAndStore(ctx, s.label, s.max)
	if err != nil {
		s.log.Error("listener cycle failed", zap.String("label", s.label), zap.Error(err))
		return
	}
	s.log.Info("listener cycle done",
		zap.String("label", s.label),
		zap.Int("fetched", result.Fetched),
		zap.Int("stored", result.Stored),
		zap.Int("skipped", result.Skipped),
	)
}
