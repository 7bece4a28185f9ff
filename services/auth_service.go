package services

import (
	"context"
	stdErrors "errors"
	"fmt"
	"geochat/auth"
	"geochat/contract"
	"geochat/domain"
	"geochat/errors"
	"geochat/repositories"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
)

const otpSubject = "Your OTP Verification Code"

type IAuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (domain.User, error)
	VerifyOTP(req auth.VerifyOTPRequest) error
	Login(req auth.LoginRequest) (LoginResult, error)
	Refresh(req auth.RefreshRequest) (auth.TokenPair, error)
}

type LoginResult struct {
	Tokens auth.TokenPair
	User   domain.User
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	otpRepository  repositories.IOTPRepository
	mailer         contract.Mailer
	tokens         *auth.TokenIssuer
	otpLifetime    time.Duration
	adminEmails    []string
	now            func() time.Time
}

func NewAuthService(
	log *slog.Logger,
	userRepository repositories.IUserRepository,
	otpRepository repositories.IOTPRepository,
	mailer contract.Mailer,
	tokens *auth.TokenIssuer,
	otpLifetime time.Duration,
	adminEmails []string) *AuthService {
	return &AuthService{
		log:            log,
		userRepository: userRepository,
		otpRepository:  otpRepository,
		mailer:         mailer,
		tokens:         tokens,
		otpLifetime:    otpLifetime,
		adminEmails:    adminEmails,
		now:            time.Now,
	}
}

// Register creates an unverified user and emails it a one-time code.
// A mail delivery failure is logged and never fails the registration.
func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := auth.Validate(req); err != nil {
		return domain.User{}, err
	}

	// Hashing stays in the service, repositories never see plain passwords
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.Create(domain.User{
		Email:        req.Email,
		Name:         req.Name,
		Mobile:       req.Mobile,
		ProfileImage: req.ProfileImage,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		PasswordHash: hashedPassword,
		IsStaff:      lo.ContainsBy(s.adminEmails, func(e string) bool { return strings.EqualFold(e, req.Email) }),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}

	code, err := auth.GenerateOTPCode()
	if err != nil {
		return domain.User{}, fmt.Errorf("otp generation failed: %w", err)
	}
	if err = s.otpRepository.Save(domain.OTP{UserID: user.ID, Code: code, CreatedAt: s.now().UTC()}); err != nil {
		return domain.User{}, fmt.Errorf("otp storage failed: %w", err)
	}

	if err = s.mailer.Send(ctx, user.Email, otpSubject, s.otpBody(user, code)); err != nil {
		s.log.Error("Failed to send OTP email", "email", user.Email, "error", err)
	}
	return user, nil
}

func (s *AuthService) otpBody(user domain.User, code string) string {
	greeting := lo.Ternary(user.Name != "", user.Name, user.Email)
	return fmt.Sprintf("Hello %s,\n\nYour OTP code is: %s\nThis code is valid for %d minutes.\n\n"+
		"If you did not request this, please ignore this email.",
		greeting, code, int(s.otpLifetime.Minutes()))
}

// VerifyOTP marks the user verified and burns all of its codes.
func (s *AuthService) VerifyOTP(req auth.VerifyOTPRequest) error {
	if err := auth.Validate(req); err != nil {
		return err
	}
	user, err := s.userRepository.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		return err
	}
	otp, err := s.otpRepository.Find(user.ID, req.Code)
	if err != nil {
		return err
	}
	if otp.IsExpired(s.now(), s.otpLifetime) {
		return errors.ErrExpiredOTP
	}

	if _, err = s.userRepository.Modify(user.ID, func(u *domain.User) { u.IsVerified = true }); err != nil {
		return err
	}
	if err = s.otpRepository.DeleteAll(user.ID); err != nil {
		s.log.Warn("Unable to clean used OTPs", "user_id", user.ID, "error", err)
	}
	return nil
}

// Login refuses unknown users and wrong passwords alike, to prevent user enumeration.
func (s *AuthService) Login(req auth.LoginRequest) (LoginResult, error) {
	if err := auth.Validate(req); err != nil {
		return LoginResult{}, err
	}
	user, err := s.userRepository.GetByEmail(strings.TrimSpace(req.Email))
	if stdErrors.Is(err, errors.ErrUserNotFound) {
		return LoginResult{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, errors.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return LoginResult{}, errors.ErrAccountNotVerified
	}

	tokens, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Tokens: tokens, User: user}, nil
}

// Refresh rotates the refresh token; claims are rebuilt from the stored user.
func (s *AuthService) Refresh(req auth.RefreshRequest) (auth.TokenPair, error) {
	if err := auth.Validate(req); err != nil {
		return auth.TokenPair{}, err
	}
	claims, err := s.tokens.Validate(req.Refresh, auth.RefreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	user, err := s.userRepository.GetByID(claims.UserID)
	if err != nil {
		return auth.TokenPair{}, errors.ErrInvalidToken
	}
	return s.tokens.Issue(user)
}
