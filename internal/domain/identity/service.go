package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/db"
)

type Service struct {
	repo   Repository
	tx     db.Transactor
	hasher *auth.PasswordHasher
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, hasher *auth.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		hasher: hasher,
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// Signup validates a flat signup request and registers it. An unknown role
// fails with ErrInvalidRole before anything is written.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	profile, err := req.Profile()
	if err != nil {
		return nil, err
	}
	return s.Register(ctx, req.Credentials(), profile)
}

// Register creates the user, its profile and the link between them in one
// transaction. Either all three writes commit or none do.
func (s *Service) Register(ctx context.Context, cred Credentials, profile Profile) (*SignupResult, error) {
	if strings.TrimSpace(cred.Username) == "" || cred.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(cred.Password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, apperr.Validation("password is too long")
		}
		return nil, apperr.Store("hash password", err)
	}

	u := &User{Username: cred.Username, PasswordHash: hash, Role: profile.Role()}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return err
		}
		profile.base().UserID = u.ID
		if err := s.repo.CreateProfile(ctx, profile); err != nil {
			return err
		}
		return s.repo.SetLinkedID(ctx, u.ID, profile.base().ID)
	})
	if err != nil {
		return nil, apperr.Store("signup", err)
	}

	linkedID := profile.base().ID
	s.logger.Info().
		Int64("user_id", u.ID).
		Str("role", string(u.Role)).
		Int64("linked_id", linkedID).
		Msg("user signed up")

	return &SignupResult{UserID: u.ID, Role: u.Role, LinkedID: linkedID}, nil
}

// Authenticate returns the user whose credentials match. Unknown usernames
// and wrong passwords fail identically with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.VerifyNone(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Store("authenticate", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]AdminView, error) {
	admins, err := s.repo.ListAdmins(ctx)
	return admins, apperr.Store("list admins", err)
}

func (s *Service) ListDoctors(ctx context.Context) ([]DoctorProfile, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	return doctors, apperr.Store("list doctors", err)
}

func (s *Service) ListPatients(ctx context.Context) ([]PatientProfile, error) {
	patients, err := s.repo.ListPatients(ctx)
	return patients, apperr.Store("list patients", err)
}

// DoctorFee returns the doctor's current fee. found is false when no such
// doctor exists.
func (s *Service) DoctorFee(ctx context.Context, doctorID int64) (float64, bool, error) {
	d, err := s.repo.GetDoctor(ctx, doctorID)
	if errors.Is(err, ErrDoctorNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Store("get doctor fee", err)
	}
	return d.Fees, true, nil
}

// UpdateDoctorFee changes the fee billed for future completions. Existing
// invoices keep the amount they were created with.
func (s *Service) UpdateDoctorFee(ctx context.Context, doctorID int64, fee float64) error {
	if fee <= 0 {
		return apperr.Validation("fees must be positive")
	}
	if err := s.repo.UpdateDoctorFee(ctx, doctorID, fee); err != nil {
		return apperr.Store("update doctor fee", err)
	}
	s.logger.Info().Int64("doctor_id", doctorID).Float64("fees", fee).Msg("doctor fee updated")
	return nil
}
