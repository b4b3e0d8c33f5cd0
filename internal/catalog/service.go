// Package catalog creates and maintains donation products and their
// categories. It is the record-creation collaborator of bulk import.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/auth"
	"doacoes/internal/logger"
	"doacoes/internal/storage"
	"doacoes/internal/validation"
)

const (
	MsgCategoryExists   = "Já existe uma categoria com esse nome"
	MsgCategoryNotFound = "Categoria não encontrada"
	MsgProductNotFound  = "Produto não encontrado"
	MsgCategoryInUse    = "Categoria inexistente ou em uso"
)

type ProductInput struct {
	Name         string                `json:"name" validate:"required,min=1,max=200"`
	Description  string                `json:"description" validate:"required,min=1,max=1000"`
	DonationType internal.DonationType `json:"donationType" validate:"required,oneof=monetary physical"`
	TargetAmount *int64                `json:"targetAmount,omitempty" validate:"omitempty,gt=0"`
	CategoryIDs  []string              `json:"categoryIds" validate:"dive,uuid"`
	ImagePath    *string               `json:"imagePath,omitempty"`
	IsPublished  *bool                 `json:"isPublished,omitempty"`
}

type categoryInput struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type Service struct {
	db       *storage.DB
	auth     auth.Checker
	validate *validation.Validator
	newID    func() string
	log      *zap.Logger
}

func NewService(db *storage.DB, checker auth.Checker, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		auth:     checker,
		validate: validation.New(),
		newID:    uuid.NewString,
		log:      logger.OrNop(log),
	}
}

func (s *Service) normalize(in ProductInput) (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Validate(in); err != nil {
		return in, err
	}
	if in.DonationType == internal.DonationMonetary && in.TargetAmount == nil {
		return in, apperr.ValidationWithDetails("validation failed", map[string]string{"targetAmount": "is required"})
	}
	if in.DonationType == internal.DonationPhysical {
		in.TargetAmount = nil
	}
	return in, nil
}

func productFrom(id string, in ProductInput) internal.Product {
	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}
	return internal.Product{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		DonationType: in.DonationType,
		TargetAmount: in.TargetAmount,
		IsPublished:  published,
		ImagePath:    in.ImagePath,
		CategoryIDs:  in.CategoryIDs,
	}
}

// CreateProduct inserts a product with its category links and returns
// the new id.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (string, error) {
	if !s.auth.IsAdminSession(ctx) {
		return "", apperr.Unauthorized()
	}
	in, err := s.normalize(in)
	if err != nil {
		return "", err
	}

	id := s.newID()
	if err := s.db.InsertProduct(productFrom(id, in)); err != nil {
		if errors.Is(err, storage.ErrReferenced) {
			return "", apperr.ValidationWithDetails("validation failed", map[string]string{"categoryIds": MsgCategoryInUse}).WithCause(err)
		}
		return "", apperr.Internal("Erro ao criar produto").WithCause(err)
	}
	s.log.Info("product created", zap.String("id", id), zap.String("name", in.Name), zap.String("type", string(in.DonationType)))
	return id, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	in, err := s.normalize(in)
	if err != nil {
		return err
	}

	err = s.db.UpdateProduct(productFrom(id, in))
	switch {
	case err == nil:
		s.log.Info("product updated", zap.String("id", id))
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.New(apperr.CodeProductNotFound, MsgProductNotFound)
	case errors.Is(err, storage.ErrReferenced):
		return apperr.ValidationWithDetails("validation failed", map[string]string{"categoryIds": MsgCategoryInUse}).WithCause(err)
	default:
		return apperr.Internal("Erro ao atualizar produto").WithCause(err)
	}
}

func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	if err := s.db.SetProductPublished(id, published); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.New(apperr.CodeProductNotFound, MsgProductNotFound)
		}
		return apperr.Internal("Erro ao atualizar produto").WithCause(err)
	}
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	err := s.db.DeleteProduct(id)
	switch {
	case err == nil:
		s.log.Info("product deleted", zap.String("id", id))
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.New(apperr.CodeProductNotFound, MsgProductNotFound)
	case errors.Is(err, storage.ErrReferenced):
		return apperr.New(apperr.CodeConflict, "Produto possui doações registradas").WithCause(err)
	default:
		return apperr.Internal("Erro ao excluir produto").WithCause(err)
	}
}

func (s *Service) GetProduct(id string) (internal.Product, error) {
	p, err := s.db.GetProduct(id)
	if errors.Is(err, storage.ErrNotFound) {
		return internal.Product{}, apperr.New(apperr.CodeProductNotFound, MsgProductNotFound)
	}
	if err != nil {
		return internal.Product{}, apperr.Internal("Erro ao carregar produto").WithCause(err)
	}
	return p, nil
}

func (s *Service) ListProducts(publishedOnly bool) ([]internal.Product, error) {
	return s.db.ListProducts(publishedOnly)
}

func (s *Service) ListProductsByCategory(categoryID string, publishedOnly bool) ([]internal.Product, error) {
	return s.db.ListProductsByCategory(categoryID, publishedOnly)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (internal.Category, error) {
	if !s.auth.IsAdminSession(ctx) {
		return internal.Category{}, apperr.Unauthorized()
	}
	in := categoryInput{Name: strings.TrimSpace(name)}
	if err := s.validate.Validate(in); err != nil {
		return internal.Category{}, err
	}

	c, err := s.db.InsertCategory(s.newID(), in.Name)
	if errors.Is(err, storage.ErrDuplicate) {
		return internal.Category{}, apperr.New(apperr.CodeDuplicateName, MsgCategoryExists)
	}
	if err != nil {
		return internal.Category{}, apperr.Internal("Erro ao criar categoria").WithCause(err)
	}
	s.log.Info("category created", zap.String("id", c.ID), zap.String("name", c.Name))
	return c, nil
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	in := categoryInput{Name: strings.TrimSpace(name)}
	if err := s.validate.Validate(in); err != nil {
		return err
	}

	err := s.db.RenameCategory(id, in.Name)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrDuplicate):
		return apperr.New(apperr.CodeDuplicateName, MsgCategoryExists)
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(MsgCategoryNotFound)
	default:
		return apperr.Internal("Erro ao atualizar categoria").WithCause(err)
	}
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if !s.auth.IsAdminSession(ctx) {
		return apperr.Unauthorized()
	}
	if err := s.db.DeleteCategory(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(MsgCategoryNotFound)
		}
		return apperr.Internal("Erro ao excluir categoria").WithCause(err)
	}
	return nil
}

func (s *Service) ListCategories() ([]internal.Category, error) {
	return s.db.ListCategories()
}

// CategoryIndex snapshots the current categories for label matching.
func (s *Service) CategoryIndex() (*CategoryIndex, error) {
	categories, err := s.ListCategories()
	if err != nil {
		return nil, err
	}
	return BuildCategoryIndex(categories), nil
}
