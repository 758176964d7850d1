package verification

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOtpStore struct{ mock.Mock }

func (m *mockOtpStore) Put(ctx context.Context, c *domain.OtpCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockOtpStore) Latest(ctx context.Context, sessionID, channel, target string) (*domain.OtpCode, error) {
	args := m.Called(ctx, sessionID, channel, target)
	if c, _ := args.Get(0).(*domain.OtpCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOtpStore) Delete(ctx context.Context, otpID string) error {
	return m.Called(ctx, otpID).Error(0)
}

type mockIdentityStore struct{ mock.Mock }

func (m *mockIdentityStore) UpsertByEmail(ctx context.Context, email string, fields map[string]interface{}) (*domain.Identity, error) {
	args := m.Called(ctx, email, fields)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, msg string) error {
	return m.Called(ctx, to, msg).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(identityKey, email, sessionID string) (string, error) {
	args := m.Called(identityKey, email, sessionID)
	return args.String(0), args.Error(1)
}

// fixedClock pins time so expiry windows can be crossed deterministically.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- builder ---

func newService(os *mockOtpStore, is *mockIdentityStore, ml *mockMailer, sms *mockSMSSender, jwt *mockJWTSigner, clk *fixedClock) Service {
	deps := ServiceDeps{
		OtpRepo:      os,
		IdentityRepo: is,
		Mailer:       ml,
		SMSSender:    sms,
		CodeTTL:      60 * time.Second,
	}
	if jwt != nil {
		deps.JWTProvider = jwt
	}
	if clk != nil {
		deps.Clock = clk
	}
	return NewService(deps)
}

// --- RequestEmailCode ---

func TestRequestEmailCode_MalformedEmail_NoStoreAccess(t *testing.T) {
	os := &mockOtpStore{}

	svc := newService(os, nil, nil, nil, nil, nil)
	err := svc.RequestEmailCode(context.Background(), "s1", "not-an-email")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	os.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRequestEmailCode_MissingSession(t *testing.T) {
	svc := newService(nil, nil, nil, nil, nil, nil)
	err := svc.RequestEmailCode(context.Background(), "", "a@b.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRequestEmailCode_HappyPath(t *testing.T) {
	os := &mockOtpStore{}
	ml := &mockMailer{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}

	var stored *domain.OtpCode
	os.On("Put", mock.Anything, mock.AnythingOfType("*domain.OtpCode")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.OtpCode)
	}).Return(nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(os, nil, ml, nil, nil, clk)
	err := svc.RequestEmailCode(context.Background(), "s1", "a@b.com")

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "s1", stored.SessionID)
	assert.Equal(t, domain.ChannelEmail, stored.Channel)
	assert.Equal(t, "a@b.com", stored.Target)
	assert.Equal(t, domain.OtpLookup("s1", domain.ChannelEmail, "a@b.com"), stored.Lookup)
	assert.Equal(t, clk.Now().Unix()+60, stored.ExpiresAt)
	assert.Len(t, stored.Code, 6)
	n, convErr := strconv.Atoi(stored.Code)
	require.NoError(t, convErr)
	assert.GreaterOrEqual(t, n, 100000)
	assert.LessOrEqual(t, n, 999999)
	ml.AssertExpectations(t)
}

func TestRequestEmailCode_MailFailureStillOK(t *testing.T) {
	os := &mockOtpStore{}
	ml := &mockMailer{}
	os.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(os, nil, ml, nil, nil, nil)
	err := svc.RequestEmailCode(context.Background(), "s1", "a@b.com")

	require.NoError(t, err)
	os.AssertExpectations(t)
}

func TestRequestEmailCode_PersistenceFailure(t *testing.T) {
	os := &mockOtpStore{}
	ml := &mockMailer{}
	os.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo unavailable"))

	svc := newService(os, nil, ml, nil, nil, nil)
	err := svc.RequestEmailCode(context.Background(), "s1", "a@b.com")

	require.Error(t, err)
	// no send attempt when the record was never persisted
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_SMSChannelUsesSNS(t *testing.T) {
	os := &mockOtpStore{}
	sms := &mockSMSSender{}
	os.On("Put", mock.Anything, mock.Anything).Return(nil)
	sms.On("SendSMS", mock.Anything, "+15550100", mock.Anything).Return(nil)

	svc := newService(os, nil, nil, sms, nil, nil).(*service)
	err := svc.requestCode(context.Background(), "s1", domain.ChannelSMS, "+15550100")

	require.NoError(t, err)
	sms.AssertExpectations(t)
}

// --- VerifyEmailCode ---

func TestVerifyEmailCode_MalformedEmail_NoStoreAccess(t *testing.T) {
	os := &mockOtpStore{}

	svc := newService(os, nil, nil, nil, nil, nil)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "not-an-email", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	os.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmailCode_EmptyCode(t *testing.T) {
	svc := newService(nil, nil, nil, nil, nil, nil)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerifyEmailCode_NoOutstandingCode(t *testing.T) {
	os := &mockOtpStore{}
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").
		Return(nil, domain.ErrNotFound)

	svc := newService(os, nil, nil, nil, nil, nil)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyEmailCode_Expired_EvenWithCorrectCode(t *testing.T) {
	os := &mockOtpStore{}
	is := &mockIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		Code:      "123456",
		ExpiresAt: clk.Now().Unix() + 60,
	}, nil)

	svc := newService(os, is, nil, nil, nil, clk)
	clk.Advance(61 * time.Second)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeExpired))
	// expiry failure must not consume the record or touch identities
	os.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	is.AssertNotCalled(t, "UpsertByEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmailCode_ExpiryBoundIsExclusive(t *testing.T) {
	os := &mockOtpStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	// expiry exactly equal to now counts as expired
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		Code:      "123456",
		ExpiresAt: clk.Now().Unix(),
	}, nil)

	svc := newService(os, nil, nil, nil, nil, clk)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeExpired))
}

func TestVerifyEmailCode_Mismatch_DoesNotConsume(t *testing.T) {
	os := &mockOtpStore{}
	is := &mockIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		Code:      "111111",
		ExpiresAt: clk.Now().Unix() + 60,
	}, nil)

	svc := newService(os, is, nil, nil, nil, clk)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "999999")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeMismatch))
	os.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	is.AssertNotCalled(t, "UpsertByEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmailCode_HappyPath(t *testing.T) {
	os := &mockOtpStore{}
	is := &mockIdentityStore{}
	jwt := &mockJWTSigner{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}

	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		SessionID: "s1",
		Code:      "123456",
		ExpiresAt: clk.Now().Unix() + 60,
	}, nil)
	ident := &domain.Identity{
		IdentityKey:   domain.EmailKey("a@b.com"),
		SessionID:     "s1",
		Email:         "a@b.com",
		EmailVerified: true,
	}
	is.On("UpsertByEmail", mock.Anything, "a@b.com", mock.MatchedBy(func(f map[string]interface{}) bool {
		return f[fieldSessionID] == "s1" && f[fieldEmailVerified] == true
	})).Return(ident, nil)
	os.On("Delete", mock.Anything, "o1").Return(nil)
	jwt.On("Sign", ident.IdentityKey, "a@b.com", "s1").Return("bearer-token", nil)

	svc := newService(os, is, nil, nil, jwt, clk)
	res, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	assert.True(t, res.Identity.EmailVerified)
	os.AssertExpectations(t)
	is.AssertExpectations(t)
	jwt.AssertExpectations(t)
}

func TestVerifyEmailCode_UpsertFailure_DoesNotConsume(t *testing.T) {
	os := &mockOtpStore{}
	is := &mockIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		Code:      "123456",
		ExpiresAt: clk.Now().Unix() + 60,
	}, nil)
	is.On("UpsertByEmail", mock.Anything, "a@b.com", mock.Anything).
		Return(nil, errors.New("dynamo unavailable"))

	svc := newService(os, is, nil, nil, nil, clk)
	_, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.Error(t, err)
	os.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerifyEmailCode_ConsumeFailureStillSucceeds(t *testing.T) {
	os := &mockOtpStore{}
	is := &mockIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	os.On("Latest", mock.Anything, "s1", domain.ChannelEmail, "a@b.com").Return(&domain.OtpCode{
		OtpID:     "o1",
		Code:      "123456",
		ExpiresAt: clk.Now().Unix() + 60,
	}, nil)
	is.On("UpsertByEmail", mock.Anything, "a@b.com", mock.Anything).
		Return(&domain.Identity{IdentityKey: domain.EmailKey("a@b.com")}, nil)
	os.On("Delete", mock.Anything, "o1").Return(errors.New("dynamo unavailable"))

	svc := newService(os, is, nil, nil, nil, clk)
	res, err := svc.VerifyEmailCode(context.Background(), "s1", "a@b.com", "123456")

	require.NoError(t, err)
	assert.NotNil(t, res.Identity)
}

// --- whole-flow properties against in-memory fakes ---

type fakeOtpStore struct {
	mu   sync.Mutex
	recs []*domain.OtpCode
}

func (f *fakeOtpStore) Put(_ context.Context, c *domain.OtpCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.recs = append(f.recs, &cp)
	return nil
}

func (f *fakeOtpStore) Latest(_ context.Context, sessionID, channel, target string) (*domain.OtpCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lookup := domain.OtpLookup(sessionID, channel, target)
	var matches []*domain.OtpCode
	for _, r := range f.recs {
		if r.Lookup == lookup {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	// ULIDs sort by creation time; mirror the descending GSI query.
	sort.Slice(matches, func(i, j int) bool { return matches[i].OtpID > matches[j].OtpID })
	cp := *matches[0]
	return &cp, nil
}

func (f *fakeOtpStore) Delete(_ context.Context, otpID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.recs {
		if r.OtpID == otpID {
			f.recs = append(f.recs[:i], f.recs[i+1:]...)
			return nil
		}
	}
	return nil // absent records delete cleanly
}

func (f *fakeOtpStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func (f *fakeOtpStore) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[len(f.recs)-1].Code
}

type fakeIdentityStore struct {
	mu   sync.Mutex
	rows map[string]*domain.Identity
}

func (f *fakeIdentityStore) UpsertByEmail(_ context.Context, email string, fields map[string]interface{}) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = make(map[string]*domain.Identity)
	}
	key := domain.EmailKey(email)
	ident, ok := f.rows[key]
	if !ok {
		ident = &domain.Identity{IdentityKey: key, Email: email}
		f.rows[key] = ident
	}
	if v, ok := fields[fieldSessionID].(string); ok {
		ident.SessionID = v
	}
	if v, ok := fields[fieldEmailVerified].(bool); ok {
		ident.EmailVerified = v
	}
	cp := *ident
	return &cp, nil
}

type discardMailer struct{}

func (discardMailer) SendEmail(string, string, string) error { return nil }

func newFlowService(otps *fakeOtpStore, idents *fakeIdentityStore, clk *fixedClock) Service {
	return NewService(ServiceDeps{
		OtpRepo:      otps,
		IdentityRepo: idents,
		Mailer:       discardMailer{},
		CodeTTL:      60 * time.Second,
		Clock:        clk,
	})
}

func TestFlow_RequestThenVerify_SucceedsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	otps := &fakeOtpStore{}
	idents := &fakeIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	svc := newFlowService(otps, idents, clk)

	require.NoError(t, svc.RequestEmailCode(ctx, "s1", "a@b.com"))
	code := otps.lastCode()

	res, err := svc.VerifyEmailCode(ctx, "s1", "a@b.com", code)
	require.NoError(t, err)
	assert.True(t, res.Identity.EmailVerified)
	assert.Equal(t, "s1", res.Identity.SessionID)
	assert.Equal(t, 0, otps.count(), "record must be consumed")

	// replaying the same code fails now that the record is gone
	_, err = svc.VerifyEmailCode(ctx, "s1", "a@b.com", code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFlow_OnlyLatestIssuanceIsVerifiable(t *testing.T) {
	ctx := context.Background()
	otps := &fakeOtpStore{}
	idents := &fakeIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	svc := newFlowService(otps, idents, clk)

	require.NoError(t, svc.RequestEmailCode(ctx, "s1", "a@b.com"))
	first := otps.lastCode()
	require.NoError(t, svc.RequestEmailCode(ctx, "s1", "a@b.com"))
	second := otps.lastCode()

	if first == second {
		t.Skip("generated codes collided; cannot distinguish issuances")
	}

	// the superseded code fails: lookups only ever see the latest record
	_, err := svc.VerifyEmailCode(ctx, "s1", "a@b.com", first)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeMismatch))

	res, err := svc.VerifyEmailCode(ctx, "s1", "a@b.com", second)
	require.NoError(t, err)
	assert.True(t, res.Identity.EmailVerified)
}

func TestFlow_WrongCodeLeavesRecordConsumable(t *testing.T) {
	ctx := context.Background()
	otps := &fakeOtpStore{}
	idents := &fakeIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	svc := newFlowService(otps, idents, clk)

	require.NoError(t, svc.RequestEmailCode(ctx, "s1", "a@b.com"))
	code := otps.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := svc.VerifyEmailCode(ctx, "s1", "a@b.com", wrong)
	require.Error(t, err)
	assert.Equal(t, 1, otps.count(), "failed attempt must not consume")

	_, err = svc.VerifyEmailCode(ctx, "s1", "a@b.com", code)
	require.NoError(t, err)
}

func TestFlow_ExpiredAfterTTL(t *testing.T) {
	ctx := context.Background()
	otps := &fakeOtpStore{}
	idents := &fakeIdentityStore{}
	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	svc := newFlowService(otps, idents, clk)

	require.NoError(t, svc.RequestEmailCode(ctx, "s1", "a@b.com"))
	code := otps.lastCode()

	clk.Advance(60 * time.Second)
	_, err := svc.VerifyEmailCode(ctx, "s1", "a@b.com", code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeExpired))
}

func TestFlow_MalformedEmailPersistsNothing(t *testing.T) {
	ctx := context.Background()
	otps := &fakeOtpStore{}
	svc := newFlowService(otps, &fakeIdentityStore{}, &fixedClock{t: time.Unix(1_700_000_000, 0)})

	err := svc.RequestEmailCode(ctx, "s1", "not-an-email")
	require.Error(t, err)
	assert.Equal(t, 0, otps.count())
}
