// Package donations records monetary donations and physical pledges, and
// manages the PIX settings and receipt uploads that go with them.
package donations

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/auth"
	"doacoes/internal/logger"
	"doacoes/internal/objectstore"
	"doacoes/internal/storage"
	"doacoes/internal/util"
	"doacoes/internal/validation"
)

const MinMonetaryAmount = 100

var allowedExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true, "pdf": true}

type MonetaryInput struct {
	ProductID   string `json:"productId" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"gte=100"`
	DonorName   string `json:"donorName" validate:"max=200"`
	ReceiptPath string `json:"receiptPath" validate:"required"`
}

type PledgeInput struct {
	ProductID  string `json:"productId" validate:"required,uuid"`
	DonorName  string `json:"donorName" validate:"required,min=1,max=200"`
	DonorPhone string `json:"donorPhone" validate:"required"`
	DonorEmail string `json:"donorEmail" validate:"omitempty,email"`
}

// PixInput updates only the fields that are set.
type PixInput struct {
	QRCodeImagePath *string `json:"qrCodeImagePath,omitempty"`
	CopiaECola      *string `json:"copiaEColaCode,omitempty"`
}

type Service struct {
	db       *storage.DB
	store    objectstore.Store
	auth     auth.Checker
	validate *validation.Validator
	newID    func() string
	now      func() time.Time
	log      *zap.Logger
}

func NewService(db *storage.DB, store objectstore.Store, checker auth.Checker, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		store:    store,
		auth:     checker,
		validate: validation.New(),
		newID:    uuid.NewString,
		now:      time.Now,
		log:      logger.OrNop(log),
	}
}

// CreateMonetaryDonation records a donation against a monetary product
// and adds it to the product's collected amount.
func (s *Service) CreateMonetaryDonation(ctx context.Context, in MonetaryInput) (string, error) {
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.ReceiptPath = strings.TrimSpace(in.ReceiptPath)
	if err := s.validate.Validate(in); err != nil {
		return "", err
	}

	id := s.newID()
	amount := in.Amount
	donation := internal.Donation{
		ID:           id,
		ProductID:    in.ProductID,
		DonationType: internal.DonationMonetary,
		Amount:       &amount,
		DonorName:    util.NonEmpty(in.DonorName),
		ReceiptPath:  &in.ReceiptPath,
	}
	err := s.db.ApplyDonation(donation, func(p internal.Product) error {
		if p.DonationType != internal.DonationMonetary {
			return apperr.ErrInvalidDonationType
		}
		if p.TargetAmount != nil && p.CurrentAmount >= *p.TargetAmount {
			return apperr.ErrAlreadyFunded
		}
		return nil
	})
	if err != nil {
		return "", s.mapApplyError(err)
	}

	s.log.Info("monetary donation recorded", zap.String("id", id), zap.String("product", in.ProductID), zap.String("amount", util.FormatBRL(amount)))
	return id, nil
}

// CreatePhysicalPledge records a pledge for a physical product and marks
// the product fulfilled.
func (s *Service) CreatePhysicalPledge(ctx context.Context, in PledgeInput) (string, error) {
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.DonorPhone = strings.TrimSpace(in.DonorPhone)
	in.DonorEmail = strings.TrimSpace(in.DonorEmail)
	if err := s.validate.Validate(in); err != nil {
		return "", err
	}
	if !util.ValidBRPhone(in.DonorPhone) {
		return "", apperr.ValidationWithDetails("validation failed", map[string]string{"donorPhone": "must be a valid Brazilian phone number"})
	}

	id := s.newID()
	phone := util.NormalizePhone(in.DonorPhone)
	donation := internal.Donation{
		ID:           id,
		ProductID:    in.ProductID,
		DonationType: internal.DonationPhysical,
		DonorName:    &in.DonorName,
		DonorPhone:   &phone,
		DonorEmail:   util.NonEmpty(in.DonorEmail),
	}
	err := s.db.ApplyDonation(donation, func(p internal.Product) error {
		if p.DonationType != internal.DonationPhysical {
			return apperr.ErrInvalidDonationType
		}
		if p.IsFulfilled {
			return apperr.ErrAlreadyFulfilled
		}
		return nil
	})
	if err != nil {
		return "", s.mapApplyError(err)
	}

	s.log.Info("physical pledge recorded", zap.String("id", id), zap.String("product", in.ProductID))
	return id, nil
}

func (s *Service) mapApplyError(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.ErrProductNotFound
	case errors.As(err, &appErr):
		return appErr
	default:
		s.log.Error("donation failed", zap.Error(err))
		return apperr.Internal("Erro ao registrar doação").WithCause(err)
	}
}

// UploadReceipt stores a donor receipt or, for admins, a PIX QR code
// image. The extension comes from filename and defaults to jpg.
func (s *Service) UploadReceipt(ctx context.Context, bucket, filename string, data []byte, contentType string) (string, error) {
	switch bucket {
	case objectstore.BucketReceipts:
	case objectstore.BucketPixQR:
		if !s.auth.IsAdminSession(ctx) {
			return "", apperr.Unauthorized()
		}
	default:
		return "", apperr.ValidationWithDetails("validation failed", map[string]string{"bucket": "Invalid bucket"})
	}
	if len(data) == 0 {
		return "", apperr.ValidationWithDetails("validation failed", map[string]string{"file": "is required"})
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	if !allowedExtensions[ext] {
		return "", apperr.ValidationWithDetails("validation failed", map[string]string{"file": "Invalid file type"})
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := objectstore.GeneratePath(bucket, ext, s.now())
	stored, err := s.store.Put(ctx, bucket, path, data, contentType)
	if err != nil {
		s.log.Error("upload failed", zap.String("bucket", bucket), zap.Error(err))
		return "", apperr.Storage("Erro ao enviar arquivo").WithCause(err)
	}
	s.log.Info("file uploaded", zap.String("bucket", bucket), zap.String("path", stored))
	return stored, nil
}

func (s *Service) GetPixSettings() (internal.PixSettings, error) {
	return s.db.GetPixSettings()
}

func (s *Service) UpdatePixSettings(ctx context.Context, in PixInput) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	current, err := s.db.GetPixSettings()
	if err != nil {
		return apperr.Internal("Erro ao carregar configurações PIX").WithCause(err)
	}
	if in.QRCodeImagePath != nil {
		current.QRCodeImagePath = in.QRCodeImagePath
	}
	if in.CopiaECola != nil {
		current.CopiaECola = in.CopiaECola
	}
	if err := s.db.UpsertPixSettings(current.QRCodeImagePath, current.CopiaECola); err != nil {
		return apperr.Internal("Erro ao salvar configurações PIX").WithCause(err)
	}
	return nil
}

func (s *Service) DashboardStats(ctx context.Context) (internal.DashboardStats, error) {
	if !s.auth.IsAdminSession(ctx) {
		return internal.DashboardStats{}, apperr.Unauthorized()
	}
	return s.db.DashboardStats()
}
