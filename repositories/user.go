//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"geochat/contract"
	"geochat/domain"
	"geochat/errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	userSequenceKey       = "seq:user"
	userSequenceBandwidth = 100
	userIDPrefix          = "user:id:"
	userEmailPrefix       = "user:email:"
	maxConflictRetries    = 16
)

type IUserRepository interface {
	Create(user domain.User) (domain.User, error)
	GetByID(id int64) (domain.User, error)
	GetByEmail(email string) (domain.User, error)
	Modify(id int64, apply func(user *domain.User)) (domain.User, error)
	ListVerified() ([]domain.User, error)
	DisplayName(id int64) (string, error)
}

var (
	_ IUserRepository         = (*UserRepository)(nil)
	_ contract.IUserDirectory = (*UserRepository)(nil)
)

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// NewUserRepository leases integer identifiers from a badger sequence.
// Close must be called to give the unused part of the lease back.
func NewUserRepository(db *badger.DB, log *slog.Logger) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequenceKey), userSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq, log: log}, nil
}

func (u *UserRepository) Close() error {
	return u.seq.Release()
}

// DiskUser is the persisted shape of a domain.User.
type DiskUser struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Mobile       string   `json:"mobile"`
	ProfileImage string   `json:"profile_image,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	PasswordHash string   `json:"password_hash"`
	IsVerified   bool     `json:"is_verified"`
	IsStaff      bool     `json:"is_staff"`
	CreatedAt    int64    `json:"created_at"`
}

// Create stores a new user under a fresh identifier.
// The email index and the record are written in the same transaction.
func (u *UserRepository) Create(user domain.User) (domain.User, error) {
	next, err := u.seq.Next()
	if err != nil {
		return domain.User{}, fmt.Errorf("next user id: %w", err)
	}
	user.ID = int64(next) + 1
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	// A concurrent signup with the same email conflicts, the retry sees its index entry
	err = u.updateWithRetry(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, []byte(strconv.FormatInt(user.ID, 10))); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), data)
	})
	if stdErrors.Is(err, badger.ErrConflict) {
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetByID(id int64) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func (u *UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailPrefix + email))
		if err != nil {
			return notFound(err)
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupted email index for %s: %w", email, err)
		}
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

// Modify reads, changes and writes a user in a single transaction.
// The identifier, the email and the creation date are never changed.
func (u *UserRepository) Modify(id int64, apply func(user *domain.User)) (domain.User, error) {
	var updated domain.User
	err := u.updateWithRetry(func(txn *badger.Txn) error {
		current, err := getUser(txn, id)
		if err != nil {
			return err
		}
		user := current
		apply(&user)
		user.ID, user.Email, user.CreatedAt = current.ID, current.Email, current.CreatedAt
		data, err := json.Marshal(fromUser(user))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		if err = txn.Set(userIDKey(id), data); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// ListVerified returns the verified users ordered by identifier.
func (u *UserRepository) ListVerified() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(userIDPrefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var disk DiskUser
				if err := json.Unmarshal(value, &disk); err != nil {
					return err
				}
				users = append(users, toUser(disk))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(users, func(user domain.User, _ int) bool { return user.IsVerified }), nil
}

// DisplayName resolves a chat sender, it fails with errors.ErrUserNotFound.
func (u *UserRepository) DisplayName(id int64) (string, error) {
	user, err := u.GetByID(id)
	if err != nil {
		return "", err
	}
	return user.DisplayName(), nil
}

// updateWithRetry runs fn again when another transaction committed a key it read.
func (u *UserRepository) updateWithRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = u.db.Update(fn); !stdErrors.Is(err, badger.ErrConflict) {
			return err
		}
		u.log.Debug("User transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

func getUser(txn *badger.Txn, id int64) (domain.User, error) {
	item, err := txn.Get(userIDKey(id))
	if err != nil {
		return domain.User{}, notFound(err)
	}
	var disk DiskUser
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &disk)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func notFound(err error) error {
	if err == badger.ErrKeyNotFound {
		return errors.ErrUserNotFound
	}
	return err
}

func userIDKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%019d", userIDPrefix, id))
}

func fromUser(user domain.User) DiskUser {
	return DiskUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Mobile:       user.Mobile,
		ProfileImage: user.ProfileImage,
		Latitude:     user.Latitude,
		Longitude:    user.Longitude,
		PasswordHash: user.PasswordHash,
		IsVerified:   user.IsVerified,
		IsStaff:      user.IsStaff,
		CreatedAt:    user.CreatedAt.UnixNano(),
	}
}

func toUser(disk DiskUser) domain.User {
	return domain.User{
		ID:           disk.ID,
		Email:        disk.Email,
		Name:         disk.Name,
		Mobile:       disk.Mobile,
		ProfileImage: disk.ProfileImage,
		Latitude:     disk.Latitude,
		Longitude:    disk.Longitude,
		PasswordHash: disk.PasswordHash,
		IsVerified:   disk.IsVerified,
		IsStaff:      disk.IsStaff,
		CreatedAt:    time.Unix(0, disk.CreatedAt).UTC(),
	}
}
