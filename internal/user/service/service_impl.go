package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/auth/password"
	"github.com/ocelon/parking/internal/auth/token"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPasswordLen = 8
	resetTokenTTL  = time.Hour
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Issuer *token.Issuer
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	issuer *token.Issuer
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("user.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		issuer: p.Issuer,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLen {
		return nil, domain.ErrWeakPassword
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, domain.ErrMissingName
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleDriver,
		Status:       domain.UserStatusActive,
		FullName:     fullName,
		Phone:        strings.TrimSpace(req.Phone),
		TaxID:        strings.ToUpper(strings.TrimSpace(req.TaxID)),
		CurrentPlan:  "basic",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var taken int64
	if err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM users WHERE email = ?`, email,
	).Scan(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, domain.ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	signed, err := s.issuer.Issue(record.ID, record.Email, string(record.Role), now)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", record.ID.String()))
	return &domain.AuthResult{User: &record, Token: signed}, nil
}

func (s *Service) Login(ctx context.Context, email, plain string) (*domain.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var record domain.User
	err := s.db.WithContext(ctx).First(&record, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(plain, record.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if record.Status != domain.UserStatusActive {
		return nil, domain.ErrAccountInactive
	}

	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		now, now, record.ID,
	).Error; err != nil {
		return nil, err
	}
	record.LastLogin = &now

	signed, err := s.issuer.Issue(record.ID, record.Email, string(record.Role), now)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: &record, Token: signed}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var record domain.User
	if err := s.db.WithContext(ctx).First(&record, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]any{"updated_at": s.clock.Now()}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, domain.ErrMissingName
		}
		updates["full_name"] = name
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.TaxID != nil {
		updates["tax_id"] = strings.ToUpper(strings.TrimSpace(*req.TaxID))
	}

	result := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetByID(ctx, id.String())
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", domain.ErrInvalidEmail
	}

	var record domain.User
	err := s.db.WithContext(ctx).First(&record, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	rawToken := hex.EncodeToString(raw)

	now := s.clock.Now()
	expiry := now.Add(resetTokenTTL)
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE users SET reset_token_hash = ?, reset_token_expiry = ?, updated_at = ? WHERE id = ?`,
		hashResetToken(rawToken), expiry, now, record.ID,
	).Error; err != nil {
		return "", err
	}

	s.log.Info("password reset requested", zap.String("user_id", record.ID.String()))
	return rawToken, nil
}

func (s *Service) VerifyResetToken(ctx context.Context, rawToken string) (string, error) {
	record, err := s.userByResetToken(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return record.Email, nil
}

func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return domain.ErrWeakPassword
	}
	record, err := s.userByResetToken(ctx, rawToken)
	if err != nil {
		return err
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	// Gated on the token hash so a token can only redeem once.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET password_hash = ?, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = ?
		 WHERE id = ? AND reset_token_hash = ?`,
		hash, s.clock.Now(), record.ID, hashResetToken(strings.TrimSpace(rawToken)),
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidResetToken
	}

	s.log.Info("password reset completed", zap.String("user_id", record.ID.String()))
	return nil
}

func (s *Service) userByResetToken(ctx context.Context, rawToken string) (*domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrInvalidResetToken
	}

	var record domain.User
	err := s.db.WithContext(ctx).First(&record, "reset_token_hash = ?", hashResetToken(rawToken)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, err
	}
	if record.ResetTokenExpiry == nil || s.clock.Now().After(*record.ResetTokenExpiry) {
		return nil, domain.ErrInvalidResetToken
	}
	return &record, nil
}

func hashResetToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) SetRole(ctx context.Context, id string, role domain.Role) error {
	if role != domain.RoleDriver && role != domain.RoleAdmin {
		return domain.ErrInvalidRole
	}
	return s.setField(ctx, id, "role", string(role))
}

func (s *Service) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	if status != domain.UserStatusActive && status != domain.UserStatusInactive {
		return domain.ErrInvalidStatus
	}
	return s.setField(ctx, id, "status", string(status))
}

func (s *Service) setField(ctx context.Context, id, column, value string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{column: value, "updated_at": s.clock.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
