package services

import (
	"geochat/auth"
	"geochat/domain"
	"geochat/errors"
	"geochat/geo"
	"geochat/repositories"

	"github.com/samber/lo"
)

// DefaultRadiusKm applies when the caller gives no usable radius.
const DefaultRadiusKm = 5.0

type IUserService interface {
	Get(userID int64) (domain.User, error)
	ListVerified() ([]domain.User, error)
	UpdateProfile(userID int64, req auth.UpdateProfileRequest) (domain.User, error)
	Nearby(userID int64, radiusKm float64) ([]domain.User, error)
}

type UserService struct {
	userRepository repositories.IUserRepository
}

func NewUserService(userRepository repositories.IUserRepository) *UserService {
	return &UserService{userRepository: userRepository}
}

func (s *UserService) Get(userID int64) (domain.User, error) {
	return s.userRepository.GetByID(userID)
}

func (s *UserService) ListVerified() ([]domain.User, error) {
	return s.userRepository.ListVerified()
}

// UpdateProfile only changes the fields present in req.
func (s *UserService) UpdateProfile(userID int64, req auth.UpdateProfileRequest) (domain.User, error) {
	if err := auth.Validate(req); err != nil {
		return domain.User{}, err
	}
	return s.userRepository.Modify(userID, func(user *domain.User) {
		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Mobile != nil {
			user.Mobile = *req.Mobile
		}
		if req.ProfileImage != nil {
			user.ProfileImage = *req.ProfileImage
		}
		if req.Latitude != nil {
			user.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			user.Longitude = req.Longitude
		}
	})
}

// Nearby lists verified users located within radiusKm of the caller, caller excluded.
func (s *UserService) Nearby(userID int64, radiusKm float64) ([]domain.User, error) {
	current, err := s.userRepository.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !current.HasLocation() {
		return nil, errors.ErrMissingLocation
	}
	candidates, err := s.userRepository.ListVerified()
	if err != nil {
		return nil, err
	}
	origin := geo.Point{Lat: *current.Latitude, Lon: *current.Longitude}
	return lo.Filter(candidates, func(u domain.User, _ int) bool {
		return u.ID != current.ID &&
			u.HasLocation() &&
			geo.Within(origin, geo.Point{Lat: *u.Latitude, Lon: *u.Longitude}, radiusKm)
	}), nil
}
