package http

import (
	"context"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
)

// IdentityRepository is the minimal interface the router requires from the
// identity store.
type IdentityRepository interface {
	Get(ctx context.Context, key string) (*domain.Identity, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Identity, error)
	UpsertByEmail(ctx context.Context, email string, fields map[string]interface{}) (*domain.Identity, error)
	UpsertBySession(ctx context.Context, sessionID string, fields map[string]interface{}) (*domain.Identity, error)
}

// SessionRepository is the minimal interface the router requires from the
// session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// OtpRepository is the minimal interface the router requires from the
// verification-code store.
type OtpRepository interface {
	Put(ctx context.Context, c *domain.OtpCode) error
	// Latest returns the most recently issued outstanding code for the
	// session+channel+target triple.
	Latest(ctx context.Context, sessionID, channel, target string) (*domain.OtpCode, error)
	Delete(ctx context.Context, otpID string) error
}

// CartRepository is the minimal interface the router requires from the
// cart store.
type CartRepository interface {
	SetItem(ctx context.Context, item *domain.CartItem) error
	List(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Delete(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
}

// ProductRepository is the minimal interface the router requires from the
// product store.
type ProductRepository interface {
	Put(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Update(ctx context.Context, productID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, productID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Product, string, error)
}

// ObjectStore is the minimal interface the router requires from the product
// image backend.
type ObjectStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
