package domain

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestSubmitMessageCommand_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"plain content", "hello", "hello", true},
		{"surrounding spaces are trimmed", "  hi there \n", "hi there", true},
		{"empty content", "", "", false},
		{"whitespace only", " \t\n ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			cmd, ok := SubmitMessageCommand{Room: ChatRoom, Content: tt.content}.Normalize()
			req.Equal(tt.ok, ok)
			req.Equal(tt.want, cmd.Content)
		})
	}
}

func TestOTP_IsExpired(t *testing.T) {
	req := require.New(t)
	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	otp := OTP{UserID: 1, Code: "123456", CreatedAt: createdAt}

	req.False(otp.IsExpired(createdAt.Add(4*time.Minute), 5*time.Minute))
	req.False(otp.IsExpired(createdAt.Add(5*time.Minute), 5*time.Minute))
	req.True(otp.IsExpired(createdAt.Add(5*time.Minute+time.Second), 5*time.Minute))
}

func TestUser_HasLocation(t *testing.T) {
	req := require.New(t)
	req.False(User{}.HasLocation())
	req.False(User{Latitude: lo.ToPtr(48.85)}.HasLocation())
	req.True(User{Latitude: lo.ToPtr(48.85), Longitude: lo.ToPtr(2.35)}.HasLocation())
}
