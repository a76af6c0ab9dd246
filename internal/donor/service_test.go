// File: internal/donor/service_test.go
package donor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hemato_backend/internal/common"
	"hemato_backend/internal/config"
	"hemato_backend/internal/shared"
)

// mockRepository implements Repository with overridable behavior per test.
type mockRepository struct {
	createFunc            func(ctx context.Context, d *Donor) error
	findAllFunc           func(ctx context.Context) ([]Donor, error)
	findByIDFunc          func(ctx context.Context, id uuid.UUID) (*Donor, error)
	findByTokenFunc       func(ctx context.Context, token string) ([]Donor, error)
	findByOwnerUIDFunc    func(ctx context.Context, uid string) ([]Donor, error)
	markVerifiedFunc      func(ctx context.Context, ids []uuid.UUID) error
	deleteFunc            func(ctx context.Context, id uuid.UUID) error
	deleteStalePendingFn  func(ctx context.Context, before time.Time) (int64, error)

	created      []*Donor
	markedIDs    [][]uuid.UUID
	deletedIDs   []uuid.UUID
}

func (m *mockRepository) Create(ctx context.Context, d *Donor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.created = append(m.created, d)
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	return nil
}

func (m *mockRepository) FindAll(ctx context.Context) ([]Donor, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*Donor, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, common.ErrNotFound
}

func (m *mockRepository) FindByVerificationToken(ctx context.Context, token string) ([]Donor, error) {
	if m.findByTokenFunc != nil {
		return m.findByTokenFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockRepository) FindByOwnerUID(ctx context.Context, uid string) ([]Donor, error) {
	if m.findByOwnerUIDFunc != nil {
		return m.findByOwnerUIDFunc(ctx, uid)
	}
	return nil, nil
}

func (m *mockRepository) MarkVerified(ctx context.Context, ids []uuid.UUID) error {
	m.markedIDs = append(m.markedIDs, ids)
	if m.markVerifiedFunc != nil {
		return m.markVerifiedFunc(ctx, ids)
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockRepository) DeleteStalePending(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteStalePendingFn != nil {
		return m.deleteStalePendingFn(ctx, before)
	}
	return 0, nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

// mockMailer implements mailer.Service and records every send.
type mockMailer struct {
	sendFunc func(ctx context.Context, to, subject, htmlBody string) error
	sent     []sentMail
}

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, htmlBody)
	}
	return nil
}

func newTestService(repo *mockRepository, mail *mockMailer) Service {
	cfg := &config.Config{
		PublicBaseURL:        "http://localhost:8080",
		PendingDonorTTLHours: 72,
	}
	return NewService(repo, mail, cfg, zap.NewNop())
}

func TestRegisterAnonymousCreatesPendingRecordAndMailsToken(t *testing.T) {
	repo := &mockRepository{}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	created, err := svc.RegisterAnonymous(context.Background(), AddDonorRequest{
		Name:       "A",
		Email:      "a@x.com",
		BloodGroup: "O+",
		District:   "X",
	})
	require.NoError(t, err)

	assert.False(t, created.IsVerified)
	assert.NotEmpty(t, created.VerificationToken)
	assert.Nil(t, created.OwnerUID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "a@x.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "token=")
	assert.NotContains(t, mail.sent[0].subject, created.VerificationToken)
}

func TestRegisterAnonymousRejectsBlankRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		req  AddDonorRequest
	}{
		{"missing name", AddDonorRequest{Email: "a@x.com", BloodGroup: "O+", District: "X"}},
		{"missing email", AddDonorRequest{Name: "A", BloodGroup: "O+", District: "X"}},
		{"missing blood group", AddDonorRequest{Name: "A", Email: "a@x.com", District: "X"}},
		{"blank district", AddDonorRequest{Name: "A", Email: "a@x.com", BloodGroup: "O+", District: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			mail := &mockMailer{}
			svc := newTestService(repo, mail)

			_, err := svc.RegisterAnonymous(context.Background(), tt.req)
			require.Error(t, err)
			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Empty(t, repo.created)
			assert.Empty(t, mail.sent)
		})
	}
}

func TestRegisterAnonymousRejectsUnknownBloodGroup(t *testing.T) {
	repo := &mockRepository{}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	_, err := svc.RegisterAnonymous(context.Background(), AddDonorRequest{
		Name: "A", Email: "a@x.com", BloodGroup: "C+", District: "X",
	})
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Empty(t, repo.created)
}

func TestRegisterOwnedIsBornVerified(t *testing.T) {
	repo := &mockRepository{}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	sess := &shared.Session{UID: "uid-1", Email: "me@x.com", EmailVerified: true}
	created, err := svc.RegisterOwned(context.Background(), sess, CreateDonorRequest{
		Name:       "Sara",
		District:   "Hawassa",
		Gender:     "Female",
		Age:        29,
		BloodGroup: "AB-",
	})
	require.NoError(t, err)

	assert.True(t, created.IsVerified)
	assert.Empty(t, created.VerificationToken)
	require.NotNil(t, created.OwnerUID)
	assert.Equal(t, "uid-1", *created.OwnerUID)
	assert.Equal(t, "me@x.com", created.Email)
	// Self-registration involves no verification email.
	assert.Empty(t, mail.sent)
}

func TestRegisterOwnedRejectsBlankFields(t *testing.T) {
	sess := &shared.Session{UID: "uid-1", Email: "me@x.com", EmailVerified: true}
	tests := []struct {
		name string
		req  CreateDonorRequest
	}{
		{"whitespace name", CreateDonorRequest{Name: "   ", District: "Hawassa", Gender: "Female", Age: 29, BloodGroup: "AB-"}},
		{"whitespace district", CreateDonorRequest{Name: "Sara", District: "  ", Gender: "Female", Age: 29, BloodGroup: "AB-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			svc := newTestService(repo, &mockMailer{})

			_, err := svc.RegisterOwned(context.Background(), sess, tt.req)
			require.Error(t, err)
			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Empty(t, repo.created)
		})
	}
}

func TestFilterDonors(t *testing.T) {
	donors := []Donor{
		{Name: "Abebe", BloodGroup: "O+", District: "Adama"},
		{Name: "Sara", BloodGroup: "AB-", District: "Hawassa"},
		{Name: "O+ve Fan", BloodGroup: "B+", District: "Mekelle"},
		{Name: "Chaltu", BloodGroup: "A-", District: "o+ town"},
	}

	got := FilterDonors(donors, "o+")
	require.Len(t, got, 3)
	assert.Equal(t, "Abebe", got[0].Name)
	assert.Equal(t, "O+ve Fan", got[1].Name)
	assert.Equal(t, "Chaltu", got[2].Name)

	assert.Len(t, FilterDonors(donors, ""), 4)
	assert.Len(t, FilterDonors(donors, "HAWASSA"), 1)
	assert.Empty(t, FilterDonors(donors, "nowhere"))
}

func TestVerifyEmailMarksAllMatchesVerified(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	repo := &mockRepository{
		findByTokenFunc: func(ctx context.Context, token string) ([]Donor, error) {
			return []Donor{
				{BaseModel: common.BaseModel{ID: first}},
				{BaseModel: common.BaseModel{ID: second}},
			}, nil
		},
	}
	svc := newTestService(repo, &mockMailer{})

	require.NoError(t, svc.VerifyEmail(context.Background(), "tok"))
	require.Len(t, repo.markedIDs, 1)
	assert.Equal(t, []uuid.UUID{first, second}, repo.markedIDs[0])
}

func TestVerifyEmailUnknownTokenMutatesNothing(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo, &mockMailer{})

	err := svc.VerifyEmail(context.Background(), "never-issued")
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TOKEN", apiErr.Code)
	assert.Empty(t, repo.markedIDs)
}

func TestVerifyEmailBlankTokenIsBadRequest(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockMailer{})

	err := svc.VerifyEmail(context.Background(), "  ")
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestDeleteOwnedGating(t *testing.T) {
	ownerUID := "uid-owner"
	recordID := uuid.New()
	record := &Donor{
		BaseModel: common.BaseModel{ID: recordID},
		OwnerUID:  &ownerUID,
	}
	anonymousID := uuid.New()
	anonymousRecord := &Donor{BaseModel: common.BaseModel{ID: anonymousID}}

	newRepo := func() *mockRepository {
		return &mockRepository{
			findByIDFunc: func(ctx context.Context, id uuid.UUID) (*Donor, error) {
				switch id {
				case recordID:
					return record, nil
				case anonymousID:
					return anonymousRecord, nil
				}
				return nil, common.ErrNotFound
			},
		}
	}

	t.Run("non-owner is denied", func(t *testing.T) {
		repo := newRepo()
		svc := newTestService(repo, &mockMailer{})
		err := svc.DeleteOwned(context.Background(), &shared.Session{UID: "uid-other"}, recordID)
		require.Error(t, err)
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Empty(t, repo.deletedIDs)
	})

	t.Run("anonymous record has no owner to authorize", func(t *testing.T) {
		repo := newRepo()
		svc := newTestService(repo, &mockMailer{})
		err := svc.DeleteOwned(context.Background(), &shared.Session{UID: "uid-other"}, anonymousID)
		require.Error(t, err)
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("owner may delete", func(t *testing.T) {
		repo := newRepo()
		svc := newTestService(repo, &mockMailer{})
		require.NoError(t, svc.DeleteOwned(context.Background(), &shared.Session{UID: ownerUID}, recordID))
		assert.Equal(t, []uuid.UUID{recordID}, repo.deletedIDs)
	})

	t.Run("absent record is not found", func(t *testing.T) {
		repo := newRepo()
		svc := newTestService(repo, &mockMailer{})
		err := svc.DeleteOwned(context.Background(), &shared.Session{UID: ownerUID}, uuid.New())
		require.Error(t, err)
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestDispatchContactRequestUnknownDonorSendsNoMail(t *testing.T) {
	repo := &mockRepository{}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	err := svc.DispatchContactRequest(context.Background(), uuid.New(), ContactRequestInput{
		Phone: "0911000000", Message: "urgent",
	})
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Empty(t, mail.sent)
}

func TestDispatchContactRequestRelayFailureIsRetriable(t *testing.T) {
	donorID := uuid.New()
	repo := &mockRepository{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*Donor, error) {
			return &Donor{BaseModel: common.BaseModel{ID: donorID}, Name: "Abebe", Email: "abebe@example.com"}, nil
		},
	}
	mail := &mockMailer{
		sendFunc: func(ctx context.Context, to, subject, htmlBody string) error {
			return errors.New("relay down")
		},
	}
	svc := newTestService(repo, mail)

	err := svc.DispatchContactRequest(context.Background(), donorID, ContactRequestInput{
		Phone: "0911000000", Message: "urgent",
	})
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "DISPATCH_FAILED", apiErr.Code)
	// Exactly one attempt; retrying is the caller's decision.
	assert.Len(t, mail.sent, 1)
}

func TestDispatchContactRequestDeliversOnce(t *testing.T) {
	donorID := uuid.New()
	repo := &mockRepository{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*Donor, error) {
			return &Donor{BaseModel: common.BaseModel{ID: donorID}, Name: "Abebe", Email: "abebe@example.com"}, nil
		},
	}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	require.NoError(t, svc.DispatchContactRequest(context.Background(), donorID, ContactRequestInput{
		Phone: "0911000000", Message: "Need O+ at Adama hospital",
	}))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "abebe@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "0911000000")
	assert.Contains(t, mail.sent[0].body, "Need O+ at Adama hospital")
}

func TestDispatchContactRequestRequiresPhoneAndMessage(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockRepository{}, mail)

	err := svc.DispatchContactRequest(context.Background(), uuid.New(), ContactRequestInput{
		Phone: " ", Message: "urgent",
	})
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Empty(t, mail.sent)
}

func TestExpirePendingRegistrationsUsesConfiguredTTL(t *testing.T) {
	var gotCutoff time.Time
	repo := &mockRepository{
		deleteStalePendingFn: func(ctx context.Context, before time.Time) (int64, error) {
			gotCutoff = before
			return 3, nil
		},
	}
	svc := newTestService(repo, &mockMailer{})

	removed, err := svc.ExpirePendingRegistrations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	wantCutoff := time.Now().Add(-72 * time.Hour)
	assert.WithinDuration(t, wantCutoff, gotCutoff, time.Minute)
}

func TestVerificationMailContainsUsableLink(t *testing.T) {
	repo := &mockRepository{}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	created, err := svc.RegisterAnonymous(context.Background(), AddDonorRequest{
		Name: "A", Email: "a@x.com", BloodGroup: "O+", District: "X",
	})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)

	assert.True(t, strings.Contains(mail.sent[0].body, "/donor/verify-email?token="),
		"mail body should carry the verification path")
	// The link token must round-trip to the stored one.
	assert.Contains(t, mail.sent[0].body, "http://localhost:8080/donor/verify-email?token=")
	assert.NotEmpty(t, created.VerificationToken)
}
