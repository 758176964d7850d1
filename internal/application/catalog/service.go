package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/pkg/id"
	"github.com/shoplite/shoplite/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldPriceCents  = "price_cents"
	fieldEnable      = "enable"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	imageURLTTL     = time.Hour
)

type Service interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.Product, string, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
}

type productStore interface {
	Put(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Update(ctx context.Context, productID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, productID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Product, string, error)
}

type imageStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	repo   productStore
	images imageStore
}

func NewService(repo productStore, images imageStore) Service {
	return &service{repo: repo, images: images}
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	products, next, err := s.repo.ScanPage(ctx, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	for i := range products {
		s.attachImageURL(ctx, &products[i])
	}
	return products, next, nil
}

func (s *service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Enable {
		return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}
	s.attachImageURL(ctx, p)
	return p, nil
}

func (s *service) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	p := &domain.Product{
		ProductID:   id.New(),
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Enable:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ImageBase64 != nil {
		imageName := "image.png"
		if req.ImageName != nil {
			imageName = sanitizeImageName(*req.ImageName)
		}
		key := fmt.Sprintf("products/%s/%s", p.ProductID, imageName)
		if _, err := s.images.UploadBase64(ctx, key, *req.ImageBase64); err != nil {
			return nil, fmt.Errorf("upload product image: %w", err)
		}
		p.ImageObject = key
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	s.attachImageURL(ctx, p)
	return p, nil
}

func (s *service) Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.PriceCents != nil {
		updates[fieldPriceCents] = *req.PriceCents
	}
	if req.Enable != nil {
		updates[fieldEnable] = *req.Enable
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.attachImageURL(ctx, p)
	return p, nil
}

func (s *service) Delete(ctx context.Context, productID string) error {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, productID)
}

// attachImageURL fills the transient presigned URL. Failures degrade to a
// product without an image link rather than failing the read.
func (s *service) attachImageURL(ctx context.Context, p *domain.Product) {
	if p.ImageObject == "" {
		return
	}
	url, err := s.images.PresignedURL(ctx, p.ImageObject, imageURLTTL)
	if err != nil {
		slog.Warn("failed to presign product image", "product_id", p.ProductID, "err", err)
		return
	}
	p.ImageURL = &url
}

func sanitizeImageName(name string) string {
	base := path.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == ".." || base == "" {
		return "image.png"
	}
	return base
}
