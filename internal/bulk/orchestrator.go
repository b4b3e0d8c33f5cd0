// Package bulk creates catalog products from finalized import items, one
// item at a time, producing one result per item.
package bulk

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/auth"
	"doacoes/internal/catalog"
	"doacoes/internal/logger"
	"doacoes/internal/validation"
)

const (
	MaxItems = 50

	MsgPhotoFailed  = "Erro ao enviar foto"
	MsgCreateFailed = "Erro ao criar produto"
	MsgItemFailed   = "Erro ao processar item"
)

type PhotoStorer interface {
	DownloadAndStore(ctx context.Context, photoURL, productName string) (string, error)
}

type ProductCreator interface {
	CreateProduct(ctx context.Context, in catalog.ProductInput) (string, error)
}

// RunRecorder persists the outcome of a finished batch.
type RunRecorder interface {
	InsertImportRun(run internal.ImportRun) error
}

type Input struct {
	Items []internal.BulkItem `json:"items" validate:"required,min=1,max=50,dive"`
}

type Orchestrator struct {
	photos   PhotoStorer
	products ProductCreator
	runs     RunRecorder
	auth     auth.Checker
	validate *validation.Validator
	log      *zap.Logger
}

// NewOrchestrator wires the collaborators. runs may be nil.
func NewOrchestrator(photos PhotoStorer, products ProductCreator, runs RunRecorder, checker auth.Checker, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		photos:   photos,
		products: products,
		runs:     runs,
		auth:     checker,
		validate: validation.New(),
		log:      logger.OrNop(log),
	}
}

// BulkCreate rejects the whole batch when the caller is not an admin or
// the input is malformed. Otherwise every item is attempted in order and
// the returned slice has exactly one result per item. progress, when set,
// is called after each item with its position.
func (o *Orchestrator) BulkCreate(ctx context.Context, items []internal.BulkItem, progress func(int, internal.ImportResult)) ([]internal.ImportResult, error) {
	if !o.auth.IsAdminSession(ctx) {
		return nil, apperr.Unauthorized()
	}
	if err := o.check(items); err != nil {
		return nil, err
	}

	total := len(items)
	o.log.Info("bulk create started", zap.Int("items", total))

	results := make([]internal.ImportResult, 0, total)
	for i, item := range items {
		res := o.processItem(ctx, i, item)
		if res.Success {
			o.log.Info(fmt.Sprintf("item %d/%d", i+1, total), zap.String("name", item.Name), zap.String("productId", res.ProductID))
		} else {
			o.log.Warn(fmt.Sprintf("item %d/%d", i+1, total), zap.String("name", item.Name), zap.String("error", res.Error))
		}
		results = append(results, res)
		if progress != nil {
			progress(i, res)
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	o.log.Info("bulk create finished", zap.Int("succeeded", succeeded), zap.Int("items", total))
	o.recordRun(total, succeeded)

	return results, nil
}

func (o *Orchestrator) check(items []internal.BulkItem) error {
	if err := o.validate.Validate(Input{Items: items}); err != nil {
		return err
	}
	details := map[string]string{}
	for i, item := range items {
		if item.DonationType == internal.DonationMonetary && (item.TargetAmount == nil || *item.TargetAmount <= 0) {
			details[fmt.Sprintf("items[%d].targetAmount", i)] = "is required for monetary items"
		}
	}
	if len(details) > 0 {
		return apperr.ValidationWithDetails("validation failed", details)
	}
	return nil
}

func (o *Orchestrator) processItem(ctx context.Context, i int, item internal.BulkItem) (res internal.ImportResult) {
	res = internal.ImportResult{RowIndex: i, Name: item.Name}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("bulk item panicked", zap.Int("index", i), zap.Any("panic", r))
			res = internal.ImportResult{RowIndex: i, Name: item.Name, Error: MsgItemFailed}
		}
	}()

	// A product is never created without its stored photo.
	imagePath, err := o.photos.DownloadAndStore(ctx, item.PhotoURL, item.Name)
	if err != nil {
		o.log.Debug("photo step failed", zap.Int("index", i), zap.Error(err))
		res.Error = MsgPhotoFailed
		return res
	}

	published := item.IsPublished
	id, err := o.products.CreateProduct(ctx, catalog.ProductInput{
		Name:         item.Name,
		Description:  item.Description,
		DonationType: item.DonationType,
		TargetAmount: item.TargetAmount,
		CategoryIDs:  []string{item.CategoryID},
		ImagePath:    &imagePath,
		IsPublished:  &published,
	})
	if err != nil {
		res.Error = createError(err)
		return res
	}

	res.Success = true
	res.ProductID = id
	return res
}

func createError(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return string(appErr.Code)
	}
	return MsgCreateFailed
}

func (o *Orchestrator) recordRun(total, succeeded int) {
	if o.runs == nil {
		return
	}
	run := internal.ImportRun{ID: uuid.NewString(), Total: total, Succeeded: succeeded, Failed: total - succeeded}
	if err := o.runs.InsertImportRun(run); err != nil {
		o.log.Warn("failed to record import run", zap.Error(err))
	}
}
