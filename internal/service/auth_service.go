package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/logger"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginResult is returned after a successful admin login.
type LoginResult struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

// AuthService checks admin credentials and issues tokens.
type AuthService struct {
	db     *gorm.DB
	tokens *TokenManager
	log    logger.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService instance.
func NewAuthService(gdb *gorm.DB, tokens *TokenManager, log logger.Logger) *AuthService {
	return &AuthService{db: gdb, tokens: tokens, log: logger.OrNop(log), now: time.Now}
}

// Tokens exposes the token manager for the auth middleware.
func (s *AuthService) Tokens() *TokenManager {
	return s.tokens
}

// Login verifies the password and, for accounts with a TOTP secret, the
// one-time code. Every failure is reported as unauthorized.
func (s *AuthService) Login(ctx context.Context, username, password, totpCode string) (LoginResult, error) {
	name := strings.TrimSpace(username)
	if name == "" || password == "" {
		return LoginResult{}, newError(KindUnauthorized, locale.MsgUnauthorized)
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warnf("login failed for unknown user %q", name)
			return LoginResult{}, newError(KindUnauthorized, locale.MsgUnauthorized)
		}
		return LoginResult{}, storeError("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Warnf("login failed for %q: bad password", name)
		return LoginResult{}, newError(KindUnauthorized, locale.MsgUnauthorized)
	}

	if secret := strings.TrimSpace(user.TOTPSecret); secret != "" {
		if !ValidateTOTP(secret, totpCode, s.now()) {
			s.log.Warnf("login failed for %q: bad one-time code", name)
			return LoginResult{}, newError(KindUnauthorized, locale.MsgUnauthorized)
		}
	}

	token, expires, err := s.tokens.Issue(user.Username)
	if err != nil {
		return LoginResult{}, storeError("issue token", err)
	}

	s.log.WithFields(logger.Fields{"actor": user.Username}).Infof("admin logged in")
	return LoginResult{Username: user.Username, Token: token, ExpiresAt: expires}, nil
}

// SetPassword replaces the admin's password, creating the account when it
// does not exist.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) error {
	name := strings.TrimSpace(username)
	if name == "" || strings.TrimSpace(password) == "" {
		return newError(KindValidation, locale.MsgInvalidRequest)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var user db.User
	err = s.db.WithContext(ctx).Where("username = ?", name).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.WithContext(ctx).Create(&db.User{Username: name, Password: string(hashed)}).Error
	case err != nil:
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password", string(hashed)).Error
}

// EnableTOTP generates a new secret for username and returns the otpauth
// URL to load into an authenticator app.
func (s *AuthService) EnableTOTP(ctx context.Context, username string) (string, error) {
	name := strings.TrimSpace(username)
	secret, url, err := GenerateTOTPSecret("Bong Bari", name)
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	result := s.db.WithContext(ctx).Model(&db.User{}).Where("username = ?", name).Update("totp_secret", secret)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", newError(KindNotFound, locale.MsgNotFound)
	}
	return url, nil
}

// GenerateTOTPSecret creates a SHA1, six digit, 30 second TOTP key.
func GenerateTOTPSecret(issuer, accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
		Period:      30,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP accepts the current code and one step of clock skew.
func ValidateTOTP(secret, code string, now time.Time) bool {
	cleanCode := strings.TrimSpace(code)
	if len(cleanCode) != 6 {
		return false
	}
	valid, err := totp.ValidateCustom(cleanCode, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// NewCSRFToken returns 32 random bytes, URL-safe base64 encoded.
func NewCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
