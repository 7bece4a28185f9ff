package services

import (
	"context"
	stdErrors "errors"
	"geochat/auth"
	"geochat/domain"
	"geochat/errors"
	"geochat/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authFixture struct {
	users  *mocks.MockIUserRepository
	otps   *mocks.MockIOTPRepository
	mailer *mocks.MockMailer
	tokens *auth.TokenIssuer
}

func newAuthService(t *testing.T) (*AuthService, authFixture) {
	ctrl := gomock.NewController(t)
	f := authFixture{
		users:  mocks.NewMockIUserRepository(ctrl),
		otps:   mocks.NewMockIOTPRepository(ctrl),
		mailer: mocks.NewMockMailer(ctrl),
		tokens: auth.NewTokenIssuer("secret", time.Hour, 24*time.Hour),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	svc := NewAuthService(log, f.users, f.otps, f.mailer, f.tokens, 5*time.Minute, []string{"admin@example.com"})
	return svc, f
}

func TestAuthService_Register(t *testing.T) {
	t.Run("should register, store an otp and mail it", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)
		var created domain.User
		var savedCode string

		f.users.EXPECT().Create(gomock.Any()).DoAndReturn(func(u domain.User) (domain.User, error) {
			created = u
			u.ID = 1
			return u, nil
		}).Times(1)
		f.otps.EXPECT().Save(gomock.Any()).DoAndReturn(func(otp domain.OTP) error {
			savedCode = otp.Code
			req.Equal(int64(1), otp.UserID)
			return nil
		}).Times(1)
		f.mailer.EXPECT().Send(gomock.Any(), "test@example.com", otpSubject, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _, body string) error {
				req.Contains(body, savedCode)
				req.Contains(body, "Hello Test")
				return nil
			}).Times(1)

		user, err := svc.Register(context.Background(), auth.RegisterRequest{
			Name: "Test", Email: " test@example.com ", Password: "password",
		})

		req.NoError(err)
		req.Equal(int64(1), user.ID)
		// Then the stored password is a hash, the account unverified
		req.NotEqual("password", created.PasswordHash)
		req.False(created.IsVerified)
		req.False(created.IsStaff)
	})

	t.Run("should grant staff to admin emails", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().Create(gomock.Any()).DoAndReturn(func(u domain.User) (domain.User, error) {
			req.True(u.IsStaff)
			u.ID = 2
			return u, nil
		}).Times(1)
		f.otps.EXPECT().Save(gomock.Any()).Return(nil).Times(1)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		_, err := svc.Register(context.Background(), auth.RegisterRequest{Email: "Admin@example.com", Password: "password"})
		req.NoError(err)
	})

	t.Run("should fail validation before touching storage", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().Create(gomock.Any()).Times(0)

		_, err := svc.Register(context.Background(), auth.RegisterRequest{Email: "test@example.com", Password: "short"})

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should fail when user already exists", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().Create(gomock.Any()).Return(domain.User{}, errors.ErrUserAlreadyExists).Times(1)
		f.otps.EXPECT().Save(gomock.Any()).Times(0)

		_, err := svc.Register(context.Background(), auth.RegisterRequest{Email: "dup@example.com", Password: "password"})

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})

	t.Run("should succeed even if the mail cannot be sent", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().Create(gomock.Any()).DoAndReturn(func(u domain.User) (domain.User, error) {
			u.ID = 3
			return u, nil
		}).Times(1)
		f.otps.EXPECT().Save(gomock.Any()).Return(nil).Times(1)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(stdErrors.New("smtp down")).Times(1)

		user, err := svc.Register(context.Background(), auth.RegisterRequest{Email: "x@example.com", Password: "password"})

		req.NoError(err)
		req.Equal(int64(3), user.ID)
	})
}

func TestAuthService_VerifyOTP(t *testing.T) {
	user := domain.User{ID: 4, Email: "v@example.com"}
	verifyReq := auth.VerifyOTPRequest{Email: "v@example.com", Code: "123456"}

	t.Run("should verify and delete codes", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail("v@example.com").Return(user, nil).Times(1)
		f.otps.EXPECT().Find(int64(4), "123456").
			Return(domain.OTP{UserID: 4, Code: "123456", CreatedAt: time.Now()}, nil).Times(1)
		f.users.EXPECT().Modify(int64(4), gomock.Any()).DoAndReturn(func(_ int64, apply func(*domain.User)) (domain.User, error) {
			updated := user
			apply(&updated)
			req.True(updated.IsVerified)
			req.Equal(user.Email, updated.Email)
			return updated, nil
		}).Times(1)
		f.otps.EXPECT().DeleteAll(int64(4)).Return(nil).Times(1)

		req.NoError(svc.VerifyOTP(verifyReq))
	})

	t.Run("should refuse an unknown user", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		req.ErrorIs(svc.VerifyOTP(verifyReq), errors.ErrUserNotFound)
	})

	t.Run("should refuse an invalid code", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(user, nil).Times(1)
		f.otps.EXPECT().Find(int64(4), "123456").Return(domain.OTP{}, errors.ErrInvalidOTP).Times(1)
		f.users.EXPECT().Modify(gomock.Any(), gomock.Any()).Times(0)

		req.ErrorIs(svc.VerifyOTP(verifyReq), errors.ErrInvalidOTP)
	})

	t.Run("should refuse an expired code", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(user, nil).Times(1)
		f.otps.EXPECT().Find(int64(4), "123456").
			Return(domain.OTP{UserID: 4, Code: "123456", CreatedAt: time.Now().Add(-6 * time.Minute)}, nil).Times(1)
		f.users.EXPECT().Modify(gomock.Any(), gomock.Any()).Times(0)

		req.ErrorIs(svc.VerifyOTP(verifyReq), errors.ErrExpiredOTP)
	})
}

func TestAuthService_Login(t *testing.T) {
	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	verified := domain.User{ID: 5, Email: "user@example.com", Name: "User", PasswordHash: hash, IsVerified: true}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail("user@example.com").Return(verified, nil).Times(1)

		result, err := svc.Login(auth.LoginRequest{Email: "user@example.com", Password: "password"})

		req.NoError(err)
		req.Equal(verified, result.User)
		claims, err := f.tokens.Validate(result.Tokens.Access, auth.AccessToken)
		req.NoError(err)
		req.Equal("user@example.com", claims.Email)
		req.Equal("User", claims.Name)
	})

	t.Run("should not enumerate users", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err := svc.Login(auth.LoginRequest{Email: "ghost@example.com", Password: "password"})

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should refuse a wrong password", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(verified, nil).Times(1)

		_, err := svc.Login(auth.LoginRequest{Email: "user@example.com", Password: "wrong-password"})

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should refuse an unverified account", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)
		unverified := verified
		unverified.IsVerified = false

		f.users.EXPECT().GetByEmail(gomock.Any()).Return(unverified, nil).Times(1)

		_, err := svc.Login(auth.LoginRequest{Email: "user@example.com", Password: "password"})

		req.ErrorIs(err, errors.ErrAccountNotVerified)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	user := domain.User{ID: 6, Email: "r@example.com", IsVerified: true}

	t.Run("should rotate the pair", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)
		pair, err := f.tokens.Issue(user)
		req.NoError(err)

		f.users.EXPECT().GetByID(int64(6)).Return(user, nil).Times(1)

		rotated, err := svc.Refresh(auth.RefreshRequest{Refresh: pair.Refresh})

		req.NoError(err)
		_, err = f.tokens.Validate(rotated.Access, auth.AccessToken)
		req.NoError(err)
		_, err = f.tokens.Validate(rotated.Refresh, auth.RefreshToken)
		req.NoError(err)
	})

	t.Run("should refuse an access token", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)
		pair, err := f.tokens.Issue(user)
		req.NoError(err)

		_, err = svc.Refresh(auth.RefreshRequest{Refresh: pair.Access})

		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should refuse a deleted user", func(t *testing.T) {
		req := require.New(t)
		svc, f := newAuthService(t)
		pair, err := f.tokens.Issue(user)
		req.NoError(err)

		f.users.EXPECT().GetByID(int64(6)).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err = svc.Refresh(auth.RefreshRequest{Refresh: pair.Refresh})

		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}
