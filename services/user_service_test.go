package services

import (
	"geochat/auth"
	"geochat/domain"
	"geochat/errors"
	"geochat/mocks"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func located(id int64, lat, lon float64) domain.User {
	return domain.User{ID: id, IsVerified: true, Latitude: lo.ToPtr(lat), Longitude: lo.ToPtr(lon)}
}

func TestUserService_Nearby(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(users)

	caller := located(1, 12.9716, 77.5946)
	near := located(2, 13.0016, 77.5946) // ~3.3 km
	far := located(3, 13.0716, 77.5946)  // ~11 km
	noLocation := domain.User{ID: 4, IsVerified: true}

	// Given the caller and three other verified users
	users.EXPECT().GetByID(int64(1)).Return(caller, nil).AnyTimes()
	users.EXPECT().ListVerified().Return([]domain.User{caller, near, far, noLocation}, nil).AnyTimes()

	// When searching with the default radius
	found, err := svc.Nearby(1, DefaultRadiusKm)

	// Then only the close one is returned, never the caller
	req.NoError(err)
	req.Equal([]domain.User{near}, found)

	// When widening the radius
	found, err = svc.Nearby(1, 20)
	req.NoError(err)
	req.Equal([]domain.User{near, far}, found)
}

func TestUserService_Nearby_Missing_Location(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(users)

	users.EXPECT().GetByID(int64(1)).Return(domain.User{ID: 1, Latitude: lo.ToPtr(1.0)}, nil).Times(1)
	users.EXPECT().ListVerified().Times(0)

	_, err := svc.Nearby(1, 5)

	req.ErrorIs(err, errors.ErrMissingLocation)
}

func TestUserService_UpdateProfile_Partial(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(users)
	current := domain.User{ID: 1, Email: "a@example.com", Name: "Alice", Mobile: "0600000000"}

	users.EXPECT().Modify(int64(1), gomock.Any()).DoAndReturn(func(_ int64, apply func(*domain.User)) (domain.User, error) {
		user := current
		apply(&user)
		return user, nil
	}).Times(1)

	// When only the name and the latitude are sent
	updated, err := svc.UpdateProfile(1, auth.UpdateProfileRequest{Name: lo.ToPtr("Alice L."), Latitude: lo.ToPtr(45.0)})

	// Then the other fields are untouched
	req.NoError(err)
	req.Equal("Alice L.", updated.Name)
	req.Equal("0600000000", updated.Mobile)
	req.Equal(45.0, *updated.Latitude)
	req.Nil(updated.Longitude)
	req.Equal("a@example.com", updated.Email)
}

func TestUserService_UpdateProfile_Unknown_User(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(users)

	users.EXPECT().Modify(int64(7), gomock.Any()).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

	_, err := svc.UpdateProfile(7, auth.UpdateProfileRequest{Name: lo.ToPtr("Ghost")})

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserService_UpdateProfile_Invalid(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(users)

	users.EXPECT().Modify(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.UpdateProfile(1, auth.UpdateProfileRequest{Latitude: lo.ToPtr(120.0)})

	req.ErrorIs(err, errors.ErrValidation)
}
