package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

type tokenIssuer interface {
	GenerateToken(userID, role, storeID string) (string, error)
}

type Service struct {
	repo *Repository
	jwt  tokenIssuer
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo *Repository, tokens tokenIssuer, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		jwt:  tokens,
		log:  log.With().Str("component", "StaffService").Logger(),
		now:  time.Now,
	}
}

type LoginResult struct {
	Staff       *Staff
	AccessToken string
}

// Register creates a staff account with a hashed PIN.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Staff, error) {
	role := req.Role
	if role == "" {
		role = jwt.RoleStaff
	}
	if !jwt.Staff(role) {
		return nil, fmt.Errorf("%w: role %q", errs.ErrInvalidParameters, role)
	}
	hash, err := HashPin(req.Pin)
	if err != nil {
		return nil, err
	}
	st := &Staff{
		Name:    req.Name,
		Phone:   req.Phone,
		PinHash: hash,
		Role:    role,
		StoreID: req.StoreID,
		Active:  true,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info().Str("staff_id", st.ID).Str("role", st.Role).Msg("staff registered")
	return st, nil
}

// Login checks phone and PIN and issues an access token carrying the
// staff role and store. Five wrong PINs lock the account for 15 minutes.
func (s *Service) Login(ctx context.Context, phone, pin string) (*LoginResult, error) {
	st, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, errs.ErrStaffNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if !st.Active {
		return nil, ErrAccountDisabled
	}
	if st.Locked(now) {
		return nil, ErrAccountLocked
	}

	if !CheckPin(pin, st.PinHash) {
		attempts := st.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if attempts >= maxFailedLoginAttempts {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
		}
		if err := s.repo.RecordFailure(ctx, st.ID, attempts, lockedUntil); err != nil {
			return nil, err
		}
		if lockedUntil != nil {
			s.log.Warn().Str("staff_id", st.ID).Msg("staff account locked")
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if st.FailedLoginAttempts > 0 || st.LockedUntil != nil {
		if err := s.repo.ResetFailures(ctx, st.ID); err != nil {
			return nil, err
		}
	}

	token, err := s.jwt.GenerateToken(st.ID, st.Role, st.StoreID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Staff: st, AccessToken: token}, nil
}
