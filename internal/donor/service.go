// File: internal/donor/service.go
package donor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hemato_backend/internal/common"
	"hemato_backend/internal/config"
	"hemato_backend/internal/mailer"
	"hemato_backend/internal/platform/crypto"
	"hemato_backend/internal/shared"
)

const verificationTokenBytes = 32

// Service defines the interface for donor-related business logic: the two
// registration paths, the verification state machine, the access gating on
// owned records, and the contact-request dispatch.
type Service interface {
	RegisterAnonymous(ctx context.Context, req AddDonorRequest) (*Donor, error)
	RegisterOwned(ctx context.Context, sess *shared.Session, req CreateDonorRequest) (*Donor, error)
	ListDonors(ctx context.Context, query string) ([]Donor, error)
	ListOwnedBy(ctx context.Context, uid string) ([]Donor, error)
	DeleteOwned(ctx context.Context, sess *shared.Session, id uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
	DispatchContactRequest(ctx context.Context, donorID uuid.UUID, req ContactRequestInput) error
	ExpirePendingRegistrations(ctx context.Context) (int64, error)
}

type service struct {
	repo   Repository
	mail   mailer.Service
	cfg    *config.Config
	logger *zap.Logger
}

// NewService creates a new donor service.
func NewService(repo Repository, mail mailer.Service, cfg *config.Config, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		mail:   mail,
		cfg:    cfg,
		logger: logger.Named("DonorService"),
	}
}

// RegisterAnonymous creates an unverified donor record and mails a one-time
// verification link to the given address.
func (s *service) RegisterAnonymous(ctx context.Context, req AddDonorRequest) (*Donor, error) {
	// A caller navigating away must not abort the in-flight insert or send.
	ctx = context.WithoutCancel(ctx)

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	bloodGroup := strings.TrimSpace(req.BloodGroup)
	district := strings.TrimSpace(req.District)
	if name == "" || email == "" || bloodGroup == "" || district == "" {
		return nil, common.ErrBadRequest.WithDetails("All fields are required.")
	}
	if !IsValidBloodGroup(bloodGroup) {
		return nil, common.ErrBadRequest.WithDetails("Blood group must be one of " + strings.Join(BloodGroups, ", ") + ".")
	}

	token, err := crypto.GenerateSecureRandomString(verificationTokenBytes)
	if err != nil {
		s.logger.Error("Failed to generate verification token", zap.Error(err))
		return nil, common.ErrInternalServer
	}

	donor := &Donor{
		Name:              name,
		Email:             email,
		BloodGroup:        bloodGroup,
		District:          district,
		IsVerified:        false,
		VerificationToken: token,
	}
	if dob := strings.TrimSpace(req.DOB); dob != "" {
		donor.DOB = &dob
	}

	if err := s.repo.Create(ctx, donor); err != nil {
		s.logger.Error("Failed to create donor record", zap.Error(err))
		return nil, err
	}

	link := mailer.VerificationLink(s.cfg.PublicBaseURL, token)
	body := mailer.VerificationEmailBody(donor.Name, link)
	if err := s.mail.Send(ctx, donor.Email, "Verify your email for Hemato Donation", body); err != nil {
		// The token value itself is never logged.
		s.logger.Error("Failed to send verification email", zap.Error(err), zap.String("donor_id", donor.ID.String()))
		return nil, err
	}

	s.logger.Info("Donor registered, verification email sent", zap.String("donor_id", donor.ID.String()))
	return donor, nil
}

// RegisterOwned creates a donor record for an authenticated, email-verified
// session. The record is born verified and carries no token; its email is the
// session email.
func (s *service) RegisterOwned(ctx context.Context, sess *shared.Session, req CreateDonorRequest) (*Donor, error) {
	if sess == nil || sess.UID == "" {
		return nil, common.ErrUnauthorized
	}
	if strings.TrimSpace(sess.Email) == "" {
		return nil, common.ErrBadRequest.WithDetails("Your account has no email address on file.")
	}

	// The binding tags catch absent fields; whitespace-only values pass them.
	name := strings.TrimSpace(req.Name)
	district := strings.TrimSpace(req.District)
	if name == "" || district == "" {
		return nil, common.ErrBadRequest.WithDetails("All fields are required.")
	}

	uid := sess.UID
	gender := req.Gender
	age := req.Age
	donor := &Donor{
		Name:       name,
		Email:      sess.Email,
		BloodGroup: req.BloodGroup,
		District:   district,
		Gender:     &gender,
		Age:        &age,
		IsVerified: true,
		OwnerUID:   &uid,
	}

	if err := s.repo.Create(ctx, donor); err != nil {
		s.logger.Error("Failed to create self-registered donor record", zap.Error(err), zap.String("owner_uid", uid))
		return nil, err
	}
	s.logger.Info("Self-registered donor created", zap.String("donor_id", donor.ID.String()), zap.String("owner_uid", uid))
	return donor, nil
}

// ListDonors returns the current directory snapshot, optionally narrowed by a
// case-insensitive substring match on name, blood group, or district.
func (s *service) ListDonors(ctx context.Context, query string) ([]Donor, error) {
	donors, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list donors", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve donors.")
	}
	return FilterDonors(donors, query), nil
}

// FilterDonors applies the directory search over a snapshot: case-insensitive
// substring match on name, blood group, or district, OR-combined. An empty
// query matches everything.
func FilterDonors(donors []Donor, query string) []Donor {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return donors
	}
	filtered := make([]Donor, 0, len(donors))
	for _, d := range donors {
		if strings.Contains(strings.ToLower(d.Name), term) ||
			strings.Contains(strings.ToLower(d.BloodGroup), term) ||
			strings.Contains(strings.ToLower(d.District), term) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func (s *service) ListOwnedBy(ctx context.Context, uid string) ([]Donor, error) {
	donors, err := s.repo.FindByOwnerUID(ctx, uid)
	if err != nil {
		s.logger.Error("Failed to list owned donations", zap.Error(err), zap.String("owner_uid", uid))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve your donations.")
	}
	return donors, nil
}

// DeleteOwned removes a donor record, permitted only when the acting session
// created it. Records without an owner cannot be deleted through this path.
func (s *service) DeleteOwned(ctx context.Context, sess *shared.Session, id uuid.UUID) error {
	if sess == nil || sess.UID == "" {
		return common.ErrUnauthorized
	}
	donor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if donor.OwnerUID == nil || *donor.OwnerUID != sess.UID {
		return common.ErrForbidden.WithDetails("You can only delete donations you created.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete donor record", zap.Error(err), zap.String("donor_id", id.String()))
		return err
	}
	s.logger.Info("Donor record deleted by owner", zap.String("donor_id", id.String()), zap.String("owner_uid", sess.UID))
	return nil
}

// VerifyEmail consumes a verification token. Every record carrying the token
// flips to verified in one atomic batch; an unknown or already-consumed token
// is reported identically so callers cannot tell the two apart.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return common.ErrBadRequest.WithDetails("A verification token is required.")
	}

	donors, err := s.repo.FindByVerificationToken(ctx, token)
	if err != nil {
		s.logger.Error("Failed to look up verification token", zap.Error(err))
		return err
	}
	if len(donors) == 0 {
		return common.ErrInvalidToken
	}

	ids := make([]uuid.UUID, len(donors))
	for i, d := range donors {
		ids[i] = d.ID
	}
	if err := s.repo.MarkVerified(ctx, ids); err != nil {
		s.logger.Error("Failed to mark donor records verified", zap.Error(err), zap.Int("matches", len(ids)))
		return err
	}

	s.logger.Info("Donor email verified", zap.Int("records", len(ids)))
	return nil
}

// DispatchContactRequest hands a seeker's message for a specific donor to the
// mail relay. Exactly one send is attempted; on relay failure the caller gets
// a retriable error and may resubmit.
func (s *service) DispatchContactRequest(ctx context.Context, donorID uuid.UUID, req ContactRequestInput) error {
	ctx = context.WithoutCancel(ctx)

	phone := strings.TrimSpace(req.Phone)
	message := strings.TrimSpace(req.Message)
	if phone == "" || message == "" {
		return common.ErrBadRequest.WithDetails("Please fill all fields.")
	}

	donor, err := s.repo.FindByID(ctx, donorID)
	if err != nil {
		return err
	}

	body := mailer.ContactRequestEmailBody(donor.Name, phone, message)
	if err := s.mail.Send(ctx, donor.Email, "Blood donation request via Hemato", body); err != nil {
		s.logger.Error("Contact request dispatch failed", zap.Error(err), zap.String("donor_id", donorID.String()))
		return common.ErrDispatchFailed
	}

	s.logger.Info("Contact request dispatched", zap.String("donor_id", donorID.String()))
	return nil
}

// ExpirePendingRegistrations deletes anonymous records that never completed
// verification within the configured TTL.
func (s *service) ExpirePendingRegistrations(ctx context.Context) (int64, error) {
	ttl := time.Duration(s.cfg.PendingDonorTTLHours) * time.Hour
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-ttl)
	removed, err := s.repo.DeleteStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to expire pending registrations", zap.Error(err))
		return 0, err
	}
	return removed, nil
}
