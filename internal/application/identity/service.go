package identity

import (
	"context"
	"fmt"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/pkg/validate"
)

// DynamoDB attribute names used in upsert field maps.
const (
	fieldName          = "name"
	fieldEmail         = "email"
	fieldEmailVerified = "email_verified"
)

type Service interface {
	// Me resolves the caller's identity: by bearer-token key when present,
	// otherwise by the anonymous session.
	Me(ctx context.Context, identityKey, sessionID string) (*domain.Identity, error)
	// UpdateProfile merges profile fields into the caller's identity.
	// verifiedEmail is non-empty only for bearer-authenticated callers.
	UpdateProfile(ctx context.Context, verifiedEmail, sessionID string, req domain.UpdateProfileRequest) (*domain.Identity, error)
}

type identityStore interface {
	Get(ctx context.Context, key string) (*domain.Identity, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Identity, error)
	UpsertByEmail(ctx context.Context, email string, fields map[string]interface{}) (*domain.Identity, error)
	UpsertBySession(ctx context.Context, sessionID string, fields map[string]interface{}) (*domain.Identity, error)
}

type service struct {
	repo identityStore
}

func NewService(repo identityStore) Service {
	return &service{repo: repo}
}

func (s *service) Me(ctx context.Context, identityKey, sessionID string) (*domain.Identity, error) {
	if identityKey != "" {
		return s.repo.Get(ctx, identityKey)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session required: %w", domain.ErrBadRequest)
	}
	return s.repo.GetBySession(ctx, sessionID)
}

func (s *service) UpdateProfile(ctx context.Context, verifiedEmail, sessionID string, req domain.UpdateProfileRequest) (*domain.Identity, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if req.Name == nil && req.Email == nil {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	if verifiedEmail != "" {
		// Verified callers update their email-keyed row. The address itself
		// can only change through a fresh verification round-trip.
		if req.Email != nil && *req.Email != verifiedEmail {
			return nil, fmt.Errorf("email changes require verification of the new address: %w", domain.ErrBadRequest)
		}
		fields := map[string]interface{}{}
		if req.Name != nil {
			fields[fieldName] = *req.Name
		}
		if len(fields) == 0 {
			return s.repo.Get(ctx, domain.EmailKey(verifiedEmail))
		}
		return s.repo.UpsertByEmail(ctx, verifiedEmail, fields)
	}

	if sessionID == "" {
		return nil, fmt.Errorf("session required: %w", domain.ErrBadRequest)
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields[fieldName] = *req.Name
	}
	if req.Email != nil {
		// A guest can record an address, but only the OTP flow verifies it.
		fields[fieldEmail] = *req.Email
		fields[fieldEmailVerified] = false
	}
	return s.repo.UpsertBySession(ctx, sessionID, fields)
}
