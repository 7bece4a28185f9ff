// Package domain contains core concepts of the chat system.
// This file defines User and OTP entities.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type User struct {
	ID           int64
	Email        string
	Name         string
	Mobile       string
	ProfileImage string
	Latitude     *float64
	Longitude    *float64
	PasswordHash string
	IsVerified   bool
	IsStaff      bool
	CreatedAt    time.Time
}

// HasLocation reports whether both coordinates are known.
func (u User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// DisplayName is how the user appears in the chat.
func (u User) DisplayName() string {
	return u.Email
}

// OTP is a one-time verification code sent by email.
type OTP struct {
	UserID    int64
	Code      string
	CreatedAt time.Time
}

// IsExpired reports whether the code is older than lifetime at instant now.
func (o OTP) IsExpired(now time.Time, lifetime time.Duration) bool {
	return now.After(o.CreatedAt.Add(lifetime))
}
