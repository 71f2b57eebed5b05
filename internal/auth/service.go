package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/grupomeridio/pricedesk-backend/pkg/auth"
	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

const tempPasswordLength = 12

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*CreateUserResult, error)
	SetUserActive(ctx context.Context, code string, active bool) (*UserDTO, error)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type sessionStore interface {
	SessionKey(accessID string) string
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users       Repository
	DB          txRunner
	Limiter     rateLimiter
	Sessions    sessionStore
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
	RateLimit   config.AuthRateLimitConfig
}

type service struct {
	users       Repository
	db          txRunner
	limiter     rateLimiter
	sessions    sessionStore
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	rateCfg     config.AuthRateLimitConfig
}

// NewService constructs the login and user provisioning service. Limiter and
// Sessions are optional; when absent the corresponding step is skipped.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &service{
		users:       params.Users,
		db:          params.DB,
		limiter:     params.Limiter,
		sessions:    params.Sessions,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		rateCfg:     params.RateLimit,
	}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	login := strings.TrimSpace(input.Login)
	if login == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if err := s.checkLoginRate(ctx, login, input.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.lookupUser(ctx, login)
	if err != nil {
		return nil, err
	}

	valid, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		UserCode: user.Code,
		Role:     user.Role,
		JTI:      jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	ttl := time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute
	if s.sessions != nil {
		if err := s.sessions.Set(ctx, s.sessions.SessionKey(jti), user.Code, ttl); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
		}
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(ttl),
		User:        FromModel(user),
	}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*CreateUserResult, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	role, err := enums.ParseActorRole(strings.ToLower(strings.TrimSpace(input.Role)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	passwordHash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Code:         code,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if err := s.ensureUnused(ctx, repo, code, email); err != nil {
			return err
		}
		if err := repo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateUserResult{
		User:         FromModel(user),
		TempPassword: tempPassword,
	}, nil
}

func (s *service) SetUserActive(ctx context.Context, code string, active bool) (*UserDTO, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	updated, err := s.users.SetActive(ctx, code, active)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %s not found", code))
	}

	user, err := s.users.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return FromModel(user), nil
}

func (s *service) checkLoginRate(ctx context.Context, login, clientIP string) error {
	if s.limiter == nil {
		return nil
	}

	scopes := []struct {
		scope string
		limit int
	}{
		{scope: "login:user:" + strings.ToLower(login), limit: s.rateCfg.LoginUserLimit},
	}
	if clientIP != "" {
		scopes = append(scopes, struct {
			scope string
			limit int
		}{scope: "login:ip:" + clientIP, limit: s.rateCfg.LoginIPLimit})
	}

	for _, item := range scopes {
		if item.limit <= 0 {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, item.scope, int64(item.limit), s.rateCfg.LoginWindow)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts")
		}
	}
	return nil
}

// lookupUser resolves a login against the email column when it looks like an
// email, otherwise against the user code.
func (s *service) lookupUser(ctx context.Context, login string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.users.FindByCode(ctx, strings.ToUpper(login))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func (s *service) ensureUnused(ctx context.Context, repo Repository, code, email string) error {
	if _, err := repo.FindByCode(ctx, code); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("user code %s already registered", code))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user code")
	}
	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}
	return nil
}
