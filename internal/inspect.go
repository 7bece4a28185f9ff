package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	RowMessage = "MESSAGE"
	RowUser    = "USER"
	RowEmail   = "EMAIL"
	RowOTP     = "OTP"
	RowRaw     = "RAW"
)

// InspectRow is one badger entry flattened for display.
type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow

func DefaultMapper(key string, val []byte) InspectRow {
	return InspectRow{
		Key:       key,
		Type:      RowRaw,
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
}

// GeochatMapper understands the message, user and otp key layouts.
func GeochatMapper(key string, val []byte) InspectRow {
	row := DefaultMapper(key, val)
	parts := strings.Split(key, ":")

	switch {
	case parts[0] == "msg" && len(parts) >= 4:
		var m struct {
			SenderID *int64 `json:"sender_id"`
			Content  string `json:"content"`
		}
		row.Type = RowMessage
		row.EntityID = shortID(parts[len(parts)-1])
		if ns, err := strconv.ParseInt(parts[len(parts)-2], 10, 64); err == nil {
			row.Timestamp = formatNanos(ns)
		}
		if err := json.Unmarshal(val, &m); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		sender := "anonymous"
		if m.SenderID != nil {
			sender = strconv.FormatInt(*m.SenderID, 10)
		}
		row.Detail = fmt.Sprintf("[%s] %s", sender, m.Content)

	case len(parts) == 3 && parts[0] == "user" && parts[1] == "id":
		var u struct {
			Email      string `json:"email"`
			IsVerified bool   `json:"is_verified"`
			IsStaff    bool   `json:"is_staff"`
			CreatedAt  int64  `json:"created_at"`
		}
		row.Type = RowUser
		row.EntityID = strings.TrimLeft(parts[2], "0")
		if err := json.Unmarshal(val, &u); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Timestamp = formatNanos(u.CreatedAt)
		row.Detail = fmt.Sprintf("%s verified=%t staff=%t", u.Email, u.IsVerified, u.IsStaff)

	case len(parts) >= 3 && parts[0] == "user" && parts[1] == "email":
		row.Type = RowEmail
		row.EntityID = string(val)
		row.Detail = strings.Join(parts[2:], ":")

	case parts[0] == "otp" && len(parts) == 3:
		row.Type = RowOTP
		row.EntityID = parts[1]
		row.Detail = parts[2]
		if ns, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			row.Timestamp = formatNanos(ns)
		}
	}
	return row
}

// Scan maps every entry under prefix, in key order.
func Scan(db *badger.DB, prefix string, mapper RowMapper) ([]InspectRow, error) {
	if mapper == nil {
		mapper = DefaultMapper
	}
	var rows []InspectRow
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(key, val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

func formatNanos(ns int64) string {
	return time.Unix(0, ns).UTC().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
