package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/sms"
	"github.com/carehub/carehub/pkg/apperr"
)

// Policy holds the issuance and grant-window knobs.
type Policy struct {
	Length      int
	Expiry      time.Duration
	Grant       time.Duration
	IssueLimit  int
	IssueWindow time.Duration
}

// PatientDirectory resolves patients for code issuance.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByPhone(ctx context.Context, phone string, role auth.Role) (*user.User, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	sender   sms.Sender
	audit    *audit.Service
	policy   Policy
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, sender sms.Sender,
	auditSvc *audit.Service, policy Policy, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		sender:   sender,
		audit:    auditSvc,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// randomCode draws each digit independently from crypto/rand.
func randomCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func lastFour(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

// GenerateInput identifies the patient a code is requested for.
type GenerateInput struct {
	PatientPhone string     `json:"patient_phone"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
}

// GenerateResult echoes the plaintext code back to the requesting
// caller. The SMS to the patient is the delivery channel; the echo
// mirrors it for clinics where the patient reads the code aloud.
type GenerateResult struct {
	Message     string    `json:"message"`
	OTP         string    `json:"otp"`
	ExpiresAt   time.Time `json:"expires_at"`
	PhoneNumber string    `json:"phone_number"`
}

// Generate mints a code for the patient and stores only its hash. Older
// unexpired codes stay valid; verify picks the most recent.
func (s *Service) Generate(ctx context.Context, ident *auth.Identity, in GenerateInput, ip, userAgent string) (*GenerateResult, error) {
	if in.PatientPhone == "" {
		return nil, apperr.Validation("invalid request", map[string]string{"patient_phone": "patient phone is required"})
	}

	var patient *user.User
	var err error
	if in.PatientID != nil {
		patient, err = s.patients.GetByID(ctx, *in.PatientID)
		if err == nil && patient.PhoneNumber != in.PatientPhone {
			return nil, apperr.Validation("phone number does not match patient record", nil)
		}
	} else {
		patient, err = s.patients.GetByPhone(ctx, in.PatientPhone, auth.RolePatient)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("patient")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "resolve patient", err)
	}
	if patient.Role != auth.RolePatient {
		return nil, apperr.NotFound("patient")
	}

	now := s.now()
	issued, err := s.repo.CountIssuedSince(ctx, ident.UserID, now.Add(-s.policy.IssueWindow))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check issuance quota", err)
	}
	if issued >= s.policy.IssueLimit {
		return nil, apperr.RateLimited("OTP request limit reached, please try again later")
	}

	code, err := randomCode(s.policy.Length)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate code", err)
	}

	row := &Code{
		PatientID:   patient.ID,
		PhoneNumber: patient.PhoneNumber,
		CodeHash:    hashCode(code),
		RequestedBy: ident.UserID,
		ExpiresAt:   now.Add(s.policy.Expiry),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "store code", err)
	}

	// Delivery is best effort. A failed send never blocks issuance, the
	// code is still echoed to the requester.
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.policy.Expiry.Minutes()))
	if err := s.sender.Send(ctx, patient.PhoneNumber, body); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patient.ID.String()).Msg("otp sms send failed")
	}

	s.audit.Record(ctx, audit.ActionOTPRequested, &patient.ID, &ident.UserID,
		map[string]any{"otp_id": row.ID.String()}, ip, userAgent)

	return &GenerateResult{
		Message:     "OTP generated successfully",
		OTP:         code,
		ExpiresAt:   row.ExpiresAt,
		PhoneNumber: lastFour(patient.PhoneNumber),
	}, nil
}

// VerifyInput carries the phone and code pair to check.
type VerifyInput struct {
	PatientPhone string `json:"patient_phone"`
	OTP          string `json:"otp"`
}

// VerifyResult reports the granted window.
type VerifyResult struct {
	Message            string    `json:"message"`
	PatientID          uuid.UUID `json:"patient_id"`
	Verified           bool      `json:"verified"`
	AccessGrantedUntil time.Time `json:"access_granted_until"`
}

const noValidOTP = "no valid OTP found or OTP has expired"

// Verify checks the most recent active code for the phone and consumes it
// on match. A wrong code leaves the row intact for another attempt.
func (s *Service) Verify(ctx context.Context, in VerifyInput, ip, userAgent string) (*VerifyResult, error) {
	if in.PatientPhone == "" || in.OTP == "" {
		return nil, apperr.Validation("invalid request", map[string]string{
			"patient_phone": "patient phone and otp are required",
		})
	}

	now := s.now()
	row, err := s.repo.LatestActiveByPhone(ctx, in.PatientPhone, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindValidation, noValidOTP)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "look up code", err)
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(in.OTP)), []byte(row.CodeHash)) != 1 {
		return nil, apperr.New(apperr.KindValidation, "invalid OTP code")
	}

	consumed, err := s.repo.Consume(ctx, row.ID, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "consume code", err)
	}
	if !consumed {
		// Lost a race with a concurrent verify.
		return nil, apperr.New(apperr.KindValidation, noValidOTP)
	}

	s.audit.Record(ctx, audit.ActionOTPVerified, &row.PatientID, &row.RequestedBy,
		map[string]any{"otp_id": row.ID.String()}, ip, userAgent)

	return &VerifyResult{
		Message:            "OTP verified successfully",
		PatientID:          row.PatientID,
		Verified:           true,
		AccessGrantedUntil: now.Add(s.policy.Grant),
	}, nil
}

// HasActiveGrant reports whether the doctor holds a live verified-OTP
// grant for the patient. Nothing is stored per session; the window is
// recomputed from used_at on every read.
func (s *Service) HasActiveGrant(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return s.repo.HasGrantSince(ctx, patientID, doctorID, s.now().Add(-s.policy.Grant))
}
