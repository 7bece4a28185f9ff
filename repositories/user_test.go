package repositories

import (
	"geochat/domain"
	"geochat/errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newUserRepository(t *testing.T) *UserRepository {
	t.Helper()
	repository, err := NewUserRepository(openDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	// When two users are created
	alice, err := repository.Create(domain.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash"})
	req.NoError(err)
	bob, err := repository.Create(domain.User{Email: "bob@example.com", Name: "Bob", Latitude: lo.ToPtr(48.85), Longitude: lo.ToPtr(2.35)})
	req.NoError(err)

	// Then they get increasing identifiers
	req.Equal(int64(1), alice.ID)
	req.Equal(int64(2), bob.ID)

	// And they can be read back by id and by email
	byID, err := repository.GetByID(bob.ID)
	req.NoError(err)
	req.Equal(bob, byID)
	byEmail, err := repository.GetByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(alice, byEmail)
}

func TestUserRepository_Create_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	_, err := repository.Create(domain.User{Email: "alice@example.com"})
	req.NoError(err)

	_, err = repository.Create(domain.User{Email: "alice@example.com"})

	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	_, err := repository.GetByID(42)
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = repository.GetByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = repository.DisplayName(42)
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = repository.Modify(42, func(user *domain.User) { user.Name = "ghost" })
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_Modify_Keeps_Identity(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)
	user, err := repository.Create(domain.User{Email: "alice@example.com", Name: "Alice"})
	req.NoError(err)

	// When the user is modified, including its email and id
	updated, err := repository.Modify(user.ID, func(u *domain.User) {
		u.Name = "Alice Liddell"
		u.IsVerified = true
		u.Email = "hacker@example.com"
		u.ID = 99
	})

	// Then only the profile moved
	req.NoError(err)
	req.Equal(user.ID, updated.ID)
	stored, err := repository.GetByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(updated, stored)
	req.Equal("Alice Liddell", stored.Name)
	req.Equal("alice@example.com", stored.Email)
	req.True(stored.IsVerified)
}

func TestUserRepository_Concurrent_Modify_Loses_Nothing(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)
	user, err := repository.Create(domain.User{Email: "alice@example.com", Mobile: "0"})
	req.NoError(err)

	// Given one writer verifying the user while others edit the profile
	var wg sync.WaitGroup
	errs := make(chan error, 9)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repository.Modify(user.ID, func(u *domain.User) {
				n, _ := strconv.Atoi(u.Mobile)
				u.Mobile = strconv.Itoa(n + 1)
			})
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repository.Modify(user.ID, func(u *domain.User) { u.IsVerified = true })
		errs <- err
	}()
	wg.Wait()
	close(errs)

	// Then every change is kept
	for err := range errs {
		req.NoError(err)
	}
	stored, err := repository.GetByID(user.ID)
	req.NoError(err)
	req.Equal("8", stored.Mobile)
	req.True(stored.IsVerified)
}

func TestUserRepository_Concurrent_Create_Same_Email(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	// When eight signups race for the same email
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repository.Create(domain.User{Email: "alice@example.com"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// Then one wins and the others see a duplicate
	created, duplicates := 0, 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		req.ErrorIs(err, errors.ErrUserAlreadyExists)
		duplicates++
	}
	req.Equal(1, created)
	req.Equal(7, duplicates)
}

func TestUserRepository_ListVerified_And_DisplayName(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)
	verified, err := repository.Create(domain.User{Email: "v@example.com", IsVerified: true})
	req.NoError(err)
	_, err = repository.Create(domain.User{Email: "u@example.com"})
	req.NoError(err)

	users, err := repository.ListVerified()
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(verified.ID, users[0].ID)

	name, err := repository.DisplayName(verified.ID)
	req.NoError(err)
	req.Equal("v@example.com", name)
}
