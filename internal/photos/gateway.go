// Package photos resolves product photos for imported items: it searches
// the photo provider and copies a chosen photo into object storage.
//
// Every error returned by Gateway is an *apperr.Error with one of these
// codes: UNAUTHORIZED, VALIDATION_ERROR, RATE_LIMITED, TIMEOUT,
// EXTERNAL_API_ERROR or STORAGE_ERROR.
package photos

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/auth"
	"doacoes/internal/config"
	"doacoes/internal/logger"
	"doacoes/internal/objectstore"
	"doacoes/internal/pexels"
	"doacoes/internal/util"
)

const (
	DefaultPerPage = 3
	MaxPerPage     = 15
	MaxQueryLength = 200

	MsgSearchRateLimited = "Limite de busca excedido. Tente novamente em alguns minutos."
	MsgSearchFailed      = "Erro ao buscar fotos. Tente novamente."
	MsgSearchTimeout     = "Busca expirou. Tente novamente."
	MsgDownloadFailed    = "Erro ao baixar foto da Pexels"
	MsgUploadFailed      = "Erro ao enviar foto para armazenamento"
)

// PhotoAPI is the subset of the provider client the gateway needs.
type PhotoAPI interface {
	Search(ctx context.Context, query string, perPage int) ([]internal.Photo, error)
	Download(ctx context.Context, rawURL string) (pexels.Download, error)
}

type Gateway struct {
	api        PhotoAPI
	store      objectstore.Store
	auth       auth.Checker
	hostPrefix *url.URL
	now        func() time.Time
	log        *zap.Logger
}

func NewGateway(api PhotoAPI, store objectstore.Store, checker auth.Checker, cfg config.Config, log *zap.Logger) (*Gateway, error) {
	host, err := url.Parse(cfg.PhotoHostPrefix)
	if err != nil || host.Scheme == "" || host.Host == "" {
		return nil, errors.New("invalid PHOTO_HOST_PREFIX")
	}
	return &Gateway{
		api:        api,
		store:      store,
		auth:       checker,
		hostPrefix: host,
		now:        time.Now,
		log:        logger.OrNop(log),
	}, nil
}

// SearchPhotos returns up to perPage candidates for query. perPage 0 means
// the default of 3.
func (g *Gateway) SearchPhotos(ctx context.Context, query string, perPage int) ([]internal.Photo, error) {
	if !g.auth.IsAdminSession(ctx) {
		return nil, apperr.Unauthorized()
	}

	query = strings.TrimSpace(query)
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	details := map[string]string{}
	if query == "" {
		details["query"] = "is required"
	} else if util.RuneLen(query) > MaxQueryLength {
		details["query"] = "must not exceed 200 characters"
	}
	if perPage < 1 || perPage > MaxPerPage {
		details["perPage"] = "must be between 1 and 15"
	}
	if len(details) > 0 {
		return nil, apperr.ValidationWithDetails("validation failed", details)
	}

	photos, err := g.api.Search(ctx, query, perPage)
	if err != nil {
		mapped := mapSearchError(err)
		g.log.Warn("photo search failed", zap.String("query", query), zap.String("code", string(mapped.Code)), zap.Error(err))
		return nil, mapped
	}
	g.log.Info("photo search", zap.String("query", query), zap.Int("results", len(photos)))
	return photos, nil
}

func mapSearchError(err error) *apperr.Error {
	var statusErr *pexels.StatusError
	switch {
	case errors.Is(err, pexels.ErrRateLimited):
		return apperr.RateLimited(MsgSearchRateLimited).WithDetails(map[string]int{"statusCode": 429}).WithCause(err)
	case errors.Is(err, pexels.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperr.Timeout(MsgSearchTimeout).WithCause(err)
	case errors.As(err, &statusErr):
		return apperr.ExternalAPI(MsgSearchFailed).WithDetails(map[string]int{"statusCode": statusErr.StatusCode}).WithCause(err)
	default:
		return apperr.ExternalAPI(MsgSearchFailed).WithCause(err)
	}
}

// DownloadAndStore copies a provider photo into the product photo bucket
// and returns its storage path. URLs outside the provider host are refused
// before any request is made.
func (g *Gateway) DownloadAndStore(ctx context.Context, photoURL, productName string) (string, error) {
	if !g.auth.IsAdminSession(ctx) {
		return "", apperr.Unauthorized()
	}

	details := map[string]string{}
	if !g.trustedURL(photoURL) {
		details["photoUrl"] = "must be a photo from " + g.hostPrefix.String()
	}
	name := strings.TrimSpace(productName)
	if name == "" {
		details["productName"] = "is required"
	} else if util.RuneLen(name) > MaxQueryLength {
		details["productName"] = "must not exceed 200 characters"
	}
	if len(details) > 0 {
		return "", apperr.ValidationWithDetails("validation failed", details)
	}

	g.log.Debug("downloading photo", zap.String("url", photoURL))
	dl, err := g.api.Download(ctx, photoURL)
	if err != nil {
		g.log.Warn("photo download failed", zap.String("url", photoURL), zap.Error(err))
		return "", apperr.ExternalAPI(MsgDownloadFailed).WithCause(err)
	}

	ext := objectstore.ExtensionForContentType(dl.ContentType)
	path := objectstore.GeneratePath(objectstore.BucketProductPhotos, ext, g.now())
	stored, err := g.store.Put(ctx, objectstore.BucketProductPhotos, path, dl.Data, dl.ContentType)
	if err != nil {
		g.log.Error("photo upload failed", zap.String("path", path), zap.Error(err))
		return "", apperr.Storage(MsgUploadFailed).WithCause(err)
	}

	g.log.Info("photo stored", zap.String("path", stored), zap.String("product", name))
	return stored, nil
}

func (g *Gateway) trustedURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, g.hostPrefix.Scheme) &&
		strings.EqualFold(u.Host, g.hostPrefix.Host) &&
		strings.HasPrefix(u.Path, g.hostPrefix.Path)
}
