package server

import (
	"encoding/json"
	stdErrors "errors"
	"geochat/auth"
	"geochat/domain"
	"geochat/errors"
	"geochat/services"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
)

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type userSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    userSummary `json:"user"`
}

type userResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Mobile       string   `json:"mobile"`
	ProfileImage *string  `json:"profile_image"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	IsVerified   bool     `json:"is_verified"`
}

type profileResponse struct {
	Name         string   `json:"name"`
	Mobile       string   `json:"mobile"`
	ProfileImage *string  `json:"profile_image"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

type postedMessageResponse struct {
	ID        domain.MessageID `json:"id"`
	Message   string           `json:"message"`
	SenderID  *int64           `json:"sender_id"`
	Timestamp time.Time        `json:"timestamp"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Members int    `json:"members"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Mobile:       u.Mobile,
		ProfileImage: lo.EmptyableToPtr(u.ProfileImage),
		Latitude:     u.Latitude,
		Longitude:    u.Longitude,
		IsVerified:   u.IsVerified,
	}
}

func toUserResponses(users []domain.User) []userResponse {
	return lo.Map(users, func(u domain.User, _ int) userResponse { return toUserResponse(u) })
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "Registration successful. An OTP has been sent to your email.",
		UserID:  user.ID,
	})
}

func (s *Server) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.authService.VerifyOTP(req); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully. You can now log in."})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.authService.Login(req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Access:  result.Tokens.Access,
		Refresh: result.Tokens.Refresh,
		User:    userSummary{ID: result.User.ID, Email: result.User.Email, Name: result.User.Name},
	})
}

func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.authService.Refresh(req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) VerifiedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.ListVerified()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req auth.UpdateProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.userService.UpdateProfile(userID(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Name:         user.Name,
		Mobile:       user.Mobile,
		ProfileImage: lo.EmptyableToPtr(user.ProfileImage),
		Latitude:     user.Latitude,
		Longitude:    user.Longitude,
	})
}

// NearbyUsers falls back to the default radius when ?radius is missing or unparseable.
func (s *Server) NearbyUsers(w http.ResponseWriter, r *http.Request) {
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if err != nil {
		radius = services.DefaultRadiusKm
	}
	users, err := s.userService.Nearby(userID(r), radius)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (s *Server) ChatMessages(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.chatService.History()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Ternary(entries == nil, []services.ChatEntry{}, entries))
}

func (s *Server) PostAdminMessage(w http.ResponseWriter, r *http.Request) {
	var req auth.PostMessageRequest
	if !s.decode(w, r, &req) {
		return
	}
	message, err := s.chatService.PostAsAdmin(r.Context(), userID(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, postedMessageResponse{
		ID:        message.ID,
		Message:   message.Content,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
	})
}

func (s *Server) ChatPage(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.chatService.History()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = chatPage.Execute(w, struct {
		Messages   []services.ChatEntry
		SocketPath string
	}{Messages: entries, SocketPath: SocketPath})
	if err != nil {
		s.log.Error("Unable to render chat page", "error", err)
	}
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Members: s.registry.Count()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// fail answers the error with its status, internal failures stay in the log.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if stdErrors.Is(err, errors.ErrValidation) {
		if fields := auth.FieldErrors(err); len(fields) > 0 {
			writeJSON(w, http.StatusBadRequest, validationResponse{Errors: fields})
			return
		}
	}
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
