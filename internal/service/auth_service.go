package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	SetResetToken(ctx context.Context, id int64, token string, issuedAt time.Time) error
	FindFacultyEntry(ctx context.Context, email, teacherNumber string) (*models.FacultyEntry, error)
	ReplaceMajors(ctx context.Context, userID int64, codes []string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	ResetTokenTTL     time.Duration
	Issuer            string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		repo:      repo,
		audit:     auditTrail{writer: repo, logger: logger},
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterStudent creates a student account and records declared majors.
func (s *AuthService) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	number := strings.TrimSpace(req.StudentNumber)
	user := &models.User{
		Role:          models.RoleStudent,
		Email:         req.Email,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		StudentNumber: &number,
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	if len(req.Majors) > 0 {
		if err := s.repo.ReplaceMajors(ctx, user.ID, req.Majors); err != nil {
			s.logger.Warn("failed to store majors at registration", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	return s.issue(user)
}

// RegisterTeacher creates a teacher account for someone listed in the
// active faculty registry. Names come from the registry.
func (s *AuthService) RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	entry, err := s.repo.FindFacultyEntry(ctx, req.Email, strings.TrimSpace(req.TeacherNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not listed in the faculty registry")
		}
		return nil, internalError(err, "failed to check faculty registry")
	}
	if !entry.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not listed in the faculty registry")
	}
	number := entry.TeacherNumber
	user := &models.User{
		Role:          models.RoleTeacher,
		Email:         normalizeEmail(entry.Email),
		FirstName:     entry.FirstName,
		LastName:      entry.LastName,
		TeacherNumber: &number,
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, internalError(err, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("ip", req.IP))
	return s.issue(user)
}

// Me returns the profile behind an actor.
func (s *AuthService) Me(ctx context.Context, actor models.Actor) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ChangePassword changes the actor's password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, actor models.Actor, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid change password payload")
	}
	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return internalError(err, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	s.audit.record(ctx, actor, models.AuditActionPasswordChange, "auth", strconv.FormatInt(user.ID, 10), map[string]string{"status": "changed"})
	return nil
}

// ForgotPassword issues a reset token for a known email. Unknown emails are
// not reported so the endpoint cannot be used to enumerate accounts; the token is
// empty in that case.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid forgot password payload")
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return "", nil
		}
		return "", internalError(err, "failed to fetch user")
	}
	token := uuid.NewString()
	if err := s.repo.SetResetToken(ctx, user.ID, token, s.now()); err != nil {
		return "", internalError(err, "failed to store reset token")
	}
	s.logger.Info("password reset requested", zap.Int64("user_id", user.ID))
	return token, nil
}

// CheckResetToken reports whether a reset token is still usable.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.resetUser(ctx, token)
	return err
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid reset password payload")
	}
	user, err := s.resetUser(ctx, req.Token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	s.audit.record(ctx, models.Actor{ID: user.ID, Role: user.Role}, models.AuditActionPasswordReset, "auth", strconv.FormatInt(user.ID, 10), map[string]string{"status": "reset"})
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// TokenTTL is how long issued access tokens live.
func (s *AuthService) TokenTTL() time.Duration {
	return s.config.AccessTokenExpiry
}

func (s *AuthService) create(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}
	user.PasswordHash = string(hash)
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return internalError(err, "failed to create user")
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), s.now()); err != nil {
		return internalError(err, "failed to update password")
	}
	return nil
}

func (s *AuthService) resetUser(ctx context.Context, token string) (*models.User, error) {
	invalid := appErrors.Clone(appErrors.ErrValidation, "reset token is invalid or expired")
	if strings.TrimSpace(token) == "" {
		return nil, invalid
	}
	user, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalid
		}
		return nil, internalError(err, "failed to check reset token")
	}
	if user.TokenCreatedAt == nil || s.now().Sub(*user.TokenCreatedAt) > s.config.ResetTokenTTL {
		return nil, invalid
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*models.LoginResponse, error) {
	issuedAt := s.now()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		Name:   user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
	}, nil
}

func userInfo(u *models.User) models.UserInfo {
	return models.UserInfo{ID: u.ID, Email: u.Email, Name: u.FullName(), Role: u.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
