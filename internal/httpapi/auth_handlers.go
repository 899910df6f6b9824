package httpapi

import (
	"net/http"
	"time"

	"ems.org/internal/audit"
	"ems.org/internal/auth"
	"ems.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Role:      string(u.Role),
		IsActive:  u.IsActive,
	}
}

func toSessionResponse(sess *auth.Session) loginResponse {
	return loginResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.AccessExpiresAt,
		User:         toUserResponse(sess.User),
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Validation failed", "email and password are required")
		return
	}

	sess, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.LoginAttempt("failure")
		writeServiceError(w, err)
		return
	}
	obs.LoginAttempt("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": sess.User.ID,
		"email":   sess.User.Email,
	})
	writeSuccess(w, http.StatusOK, "Login successful", toSessionResponse(sess))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	sess, err := a.auth.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		obs.RefreshAttempt("failure")
		writeServiceError(w, err)
		return
	}
	obs.RefreshAttempt("success")
	writeSuccess(w, http.StatusOK, "Token refreshed", toSessionResponse(sess))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	if err := a.auth.Logout(r.Context(), p.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{"user_id": p.UserID})
	writeSuccess(w, http.StatusOK, "Logged out", nil)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := a.auth.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password_changed", map[string]any{"user_id": p.UserID})
	writeSuccess(w, http.StatusOK, "Password changed", nil)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin))
	if !ok {
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	role, okRole := auth.ParseRole(req.Role)
	if !okRole {
		writeFailure(w, http.StatusBadRequest, "Validation failed", "unknown role")
		return
	}

	u, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.registered", map[string]any{
		"user_id": u.ID,
		"by":      p.UserID,
		"role":    string(u.Role),
	})
	writeSuccess(w, http.StatusCreated, "User registered", toUserResponse(u))
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	u, err := a.auth.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", toUserResponse(u))
}
