package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridx-backend/models"
	"gridx-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOAuthAction = errors.New("oauth action must be login or register")
)

const (
	OAuthActionLogin    = "login"
	OAuthActionRegister = "register"
)

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

type RegisterParams struct {
	Email       string
	Password    string
	FullName    string
	Phone       string
	IsInstaller bool
}

func (s *AccountService) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	db := s.db.WithContext(ctx)
	email := models.NormalizeEmail(params.Email)

	taken, err := s.emailExists(db, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	user := models.User{
		Email:       email,
		Password:    params.Password, // hashed in BeforeCreate
		FullName:    strings.TrimSpace(params.FullName),
		Phone:       strings.TrimSpace(params.Phone),
		IsInstaller: params.IsInstaller,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	zap.L().Info("User registered", zap.Uint("user_id", user.ID), zap.Bool("installer", user.IsInstaller))
	return &user, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and
// a wrong password.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := db.Model(&user).Update("last_login", &now).Error; err != nil {
		zap.L().Warn("Failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return &user, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// FindOrCreateOAuthUser resolves an identity returned by an OAuth provider.
// register requires the email to be new; login requires it to exist.
func (s *AccountService) FindOrCreateOAuthUser(ctx context.Context, email, name, action string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrInvalidCredentials)
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	switch action {
	case OAuthActionLogin:
		if !found {
			return nil, ErrUserNotFound
		}
		now := time.Now().UTC()
		if err := db.Model(&user).Update("last_login", &now).Error; err != nil {
			zap.L().Warn("Failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return &user, nil
	case OAuthActionRegister:
		if found {
			return nil, ErrEmailTaken
		}
		// The account can only be reached through the provider until the
		// user sets a password.
		password, err := utils.GenerateRandomString(32)
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		if strings.TrimSpace(name) == "" {
			name = strings.Split(email, "@")[0]
		}
		return s.Register(ctx, RegisterParams{Email: email, Password: password, FullName: name})
	default:
		return nil, ErrInvalidOAuthAction
	}
}

// SetInstaller grants or revokes the installer role. It is only reachable
// from operator tooling, never from a request body.
func (s *AccountService) SetInstaller(ctx context.Context, email string, installer bool) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := db.Model(&user).Update("is_installer", installer).Error; err != nil {
		return nil, fmt.Errorf("update installer role: %w", err)
	}
	user.IsInstaller = installer

	zap.L().Info("Installer role changed", zap.Uint("user_id", user.ID), zap.Bool("installer", installer))
	return &user, nil
}

func (s *AccountService) emailExists(db *gorm.DB, email string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
