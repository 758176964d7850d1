package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shoplite/shoplite/internal/application/verification"
	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVerificationService struct{ mock.Mock }

func (m *mockVerificationService) RequestEmailCode(ctx context.Context, sessionID, email string) error {
	return m.Called(ctx, sessionID, email).Error(0)
}

func (m *mockVerificationService) VerifyEmailCode(ctx context.Context, sessionID, email, code string) (*verification.VerifyResult, error) {
	args := m.Called(ctx, sessionID, email, code)
	if res, _ := args.Get(0).(*verification.VerifyResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func sessionRequest(method, target, body, sid string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.SessionIDKey, sid)
	return req.WithContext(ctx)
}

func TestRequestEmail_OK(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("RequestEmailCode", mock.Anything, "s1", "a@b.com").Return(nil)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.RequestEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/request", `{"email":"a@b.com"}`, "s1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestRequestEmail_BadBody(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationService{})
	rr := httptest.NewRecorder()
	h.RequestEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/request", `{not json`, "s1"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestEmail_InvalidEmail(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("RequestEmailCode", mock.Anything, "s1", "nope").
		Return(fmt.Errorf("invalid email address: %w", domain.ErrBadRequest))
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.RequestEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/request", `{"email":"nope"}`, "s1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyEmail_OK(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("VerifyEmailCode", mock.Anything, "s1", "a@b.com", "123456").Return(&verification.VerifyResult{
		Identity: &domain.Identity{IdentityKey: domain.EmailKey("a@b.com"), Email: "a@b.com", EmailVerified: true},
		Bearer:   "token",
	}, nil)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/verify", `{"email":"a@b.com","code":"123456"}`, "s1"))

	require.Equal(t, http.StatusOK, rr.Code)
	var env VerifyEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "token", env.Bearer)
	require.NotNil(t, env.Identity)
	assert.True(t, env.Identity.EmailVerified)
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("VerifyEmailCode", mock.Anything, "s1", "a@b.com", "000000").
		Return(nil, fmt.Errorf("submitted code does not match: %w", domain.ErrCodeMismatch))
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/verify", `{"email":"a@b.com","code":"000000"}`, "s1"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifyEmail_Expired(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("VerifyEmailCode", mock.Anything, "s1", "a@b.com", "123456").
		Return(nil, fmt.Errorf("code expired at 0: %w", domain.ErrCodeExpired))
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyEmail(rr, sessionRequest(http.MethodPost, "/v1/verification/email/verify", `{"email":"a@b.com","code":"123456"}`, "s1"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
