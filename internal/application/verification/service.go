package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/pkg/clock"
	"github.com/shoplite/shoplite/internal/pkg/id"
	"github.com/shoplite/shoplite/internal/pkg/otpcode"
	"github.com/shoplite/shoplite/internal/pkg/validate"
)

// DynamoDB attribute names written through the identity upsert.
const (
	fieldSessionID     = "session_id"
	fieldEmailVerified = "email_verified"
)

// VerifyResult is what a successful code verification yields: the (possibly
// freshly created) identity and, when a signer is configured, a bearer token
// for it.
type VerifyResult struct {
	Identity *domain.Identity
	Bearer   string
}

type Service interface {
	// RequestEmailCode issues a short-lived 6-digit code bound to
	// session+email and hands it to the mail transport. Delivery failure does
	// not fail the request: the code is valid once persisted.
	RequestEmailCode(ctx context.Context, sessionID, email string) error
	// VerifyEmailCode checks a submitted code against the latest outstanding
	// record for session+email. On success the email is bound to the session
	// identity (email_verified=true) and the record is consumed.
	VerifyEmailCode(ctx context.Context, sessionID, email, code string) (*VerifyResult, error)
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OtpCode) error
	Latest(ctx context.Context, sessionID, channel, target string) (*domain.OtpCode, error)
	Delete(ctx context.Context, otpID string) error
}

type identityStore interface {
	UpsertByEmail(ctx context.Context, email string, fields map[string]interface{}) (*domain.Identity, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(identityKey, email, sessionID string) (string, error)
}

type service struct {
	otpRepo      otpStore
	identityRepo identityStore
	mailer       mailSender
	smsSender    smsSender
	jwtProvider  jwtSigner
	codeTTL      time.Duration
	clock        clock.Clocker
}

type ServiceDeps struct {
	OtpRepo      otpStore
	IdentityRepo identityStore
	Mailer       mailSender
	SMSSender    smsSender
	JWTProvider  jwtSigner // optional
	CodeTTL      time.Duration
	Clock        clock.Clocker // optional, defaults to system time
}

func NewService(deps ServiceDeps) Service {
	c := deps.Clock
	if c == nil {
		c = clock.New()
	}
	return &service{
		otpRepo:      deps.OtpRepo,
		identityRepo: deps.IdentityRepo,
		mailer:       deps.Mailer,
		smsSender:    deps.SMSSender,
		jwtProvider:  deps.JWTProvider,
		codeTTL:      deps.CodeTTL,
		clock:        c,
	}
}

func (s *service) RequestEmailCode(ctx context.Context, sessionID, email string) error {
	if sessionID == "" {
		return fmt.Errorf("session required: %w", domain.ErrBadRequest)
	}
	if !validate.Email(email) {
		return fmt.Errorf("invalid email address: %w", domain.ErrBadRequest)
	}
	return s.requestCode(ctx, sessionID, domain.ChannelEmail, email)
}

// requestCode persists a fresh code and attempts delivery on the record's
// channel. Issuance and delivery are decoupled: once the record is stored the
// code is verifiable regardless of send outcome.
func (s *service) requestCode(ctx context.Context, sessionID, channel, target string) error {
	code, err := otpcode.New()
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	rec := &domain.OtpCode{
		OtpID:     id.New(),
		SessionID: sessionID,
		Channel:   channel,
		Target:    target,
		Code:      code,
		Lookup:    domain.OtpLookup(sessionID, channel, target),
		ExpiresAt: now.Add(s.codeTTL).Unix(),
		CreatedAt: now,
	}
	if err := s.otpRepo.Put(ctx, rec); err != nil {
		return err
	}
	s.deliver(ctx, rec)
	return nil
}

func (s *service) deliver(ctx context.Context, rec *domain.OtpCode) {
	var err error
	switch rec.Channel {
	case domain.ChannelSMS:
		err = s.smsSender.SendSMS(ctx, rec.Target, "Your verification code: "+rec.Code)
	default:
		err = s.mailer.SendEmail(rec.Target, "Your verification code", "Your code: "+rec.Code)
	}
	if err != nil {
		slog.Warn("failed to deliver verification code", "channel", rec.Channel, "session_id", rec.SessionID, "err", err)
	}
}

func (s *service) VerifyEmailCode(ctx context.Context, sessionID, email, code string) (*VerifyResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session required: %w", domain.ErrBadRequest)
	}
	if !validate.Email(email) {
		return nil, fmt.Errorf("invalid email address: %w", domain.ErrBadRequest)
	}
	if code == "" {
		return nil, fmt.Errorf("code required: %w", domain.ErrBadRequest)
	}

	rec, err := s.otpRepo.Latest(ctx, sessionID, domain.ChannelEmail, email)
	if err != nil {
		return nil, err
	}
	// Validity has an exclusive upper bound: a code submitted at exactly its
	// expiry instant is already expired.
	if rec.ExpiresAt <= s.clock.Now().Unix() {
		return nil, fmt.Errorf("code expired at %d: %w", rec.ExpiresAt, domain.ErrCodeExpired)
	}
	if rec.Code != code {
		return nil, fmt.Errorf("submitted code does not match: %w", domain.ErrCodeMismatch)
	}

	ident, err := s.identityRepo.UpsertByEmail(ctx, email, map[string]interface{}{
		fieldSessionID:     sessionID,
		fieldEmailVerified: true,
	})
	if err != nil {
		return nil, err
	}
	// Consume after the identity write. A failed delete leaves a stale record
	// that TTL eventually sweeps; it must not fail the verification.
	if err := s.otpRepo.Delete(ctx, rec.OtpID); err != nil {
		slog.Warn("failed to delete consumed code", "otp_id", rec.OtpID, "session_id", sessionID, "err", err)
	}

	res := &VerifyResult{Identity: ident}
	if s.jwtProvider != nil {
		bearer, err := s.jwtProvider.Sign(ident.IdentityKey, ident.Email, sessionID)
		if err != nil {
			slog.Warn("failed to sign bearer token", "identity", ident.IdentityKey, "err", err)
		} else {
			res.Bearer = bearer
		}
	}
	return res, nil
}
