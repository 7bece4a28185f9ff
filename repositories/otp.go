//go:generate go run go.uber.org/mock/mockgen -source=otp.go -destination=../mocks/mock_otp_repository.go -package=mocks
package repositories

import (
	"fmt"
	"geochat/domain"
	"geochat/errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const otpPrefix = "otp:"

type IOTPRepository interface {
	Save(otp domain.OTP) error
	Find(userID int64, code string) (domain.OTP, error)
	DeleteAll(userID int64) error
}

var _ IOTPRepository = (*OTPRepository)(nil)

// OTPRepository keeps verification codes under "otp:{user_id}:{code}".
// Entries carry a badger TTL so forgotten codes are garbage collected,
// expiry itself is decided by domain.OTP.IsExpired.
type OTPRepository struct {
	db        *badger.DB
	retention time.Duration
}

func NewOTPRepository(db *badger.DB, retention time.Duration) *OTPRepository {
	return &OTPRepository{db: db, retention: retention}
}

func (o *OTPRepository) Save(otp domain.OTP) error {
	return o.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(otpKey(otp.UserID, otp.Code),
			[]byte(strconv.FormatInt(otp.CreatedAt.UnixNano(), 10)))
		if o.retention > 0 {
			entry = entry.WithTTL(o.retention)
		}
		return txn.SetEntry(entry)
	})
}

// Find fails with errors.ErrInvalidOTP when the user never received this code.
func (o *OTPRepository) Find(userID int64, code string) (domain.OTP, error) {
	var otp domain.OTP
	err := o.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(otpKey(userID, code))
		if err == badger.ErrKeyNotFound {
			return errors.ErrInvalidOTP
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		createdAt, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupted otp for user %d: %w", userID, err)
		}
		otp = domain.OTP{UserID: userID, Code: code, CreatedAt: time.Unix(0, createdAt).UTC()}
		return nil
	})
	return otp, err
}

// DeleteAll removes every code ever issued to the user.
func (o *OTPRepository) DeleteAll(userID int64) error {
	prefix := []byte(fmt.Sprintf("%s%d:", otpPrefix, userID))
	var keys [][]byte
	err := o.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return o.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func otpKey(userID int64, code string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", otpPrefix, userID, code))
}
