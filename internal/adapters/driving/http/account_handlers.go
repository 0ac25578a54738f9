package http

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

// SetPasswordRequest is an admin resetting an analyst's password
type SetPasswordRequest struct {
	Password string `json:"password" example:"correct-horse-battery"`
}

// handleLogin godoc
// @Summary      Analyst login
// @Description  Exchanges email and password for a bearer token and a single-use refresh token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Malformed body"
// @Failure      401      {object}  ErrorResponse  "Wrong credentials or disabled account"
// @Failure      422      {object}  ErrorResponse  "Missing email or password"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.authService.Authenticate(r.Context(), req)
	if errors.Is(err, domain.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "account disabled", Code: "ACCOUNT_DISABLED"})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh session
// @Description  Trades a refresh token for a new session. The old session ends.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Malformed body"
// @Failure      401      {object}  ErrorResponse  "Unknown, used or expired refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		if status, _ := statusFor(err); status == http.StatusInternalServerError {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid refresh token", Code: "TOKEN_INVALID"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout
// @Description  Ends the session of the presented token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authService.Logout(r.Context(), extractBearerToken(r)); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleLogoutAll godoc
// @Summary      Logout everywhere
// @Description  Ends every session of the caller
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout-all [post]
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := s.authService.LogoutAll(r.Context(), GetAuthContext(r.Context()).UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleChangePassword godoc
// @Summary      Change own password
// @Description  Verifies the current password, sets the new one and ends every session of the caller
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      401      {object}  ErrorResponse  "Current password is wrong"
// @Failure      422      {object}  ErrorResponse  "New password too short"
// @Router       /auth/password [post]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.authService.ChangePassword(r.Context(), GetAuthContext(r.Context()).UserID, req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleSetup godoc
// @Summary      First admin
// @Description  Creates the first admin account. Refused once any analyst exists.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      driving.SetupRequest  true  "Admin details"
// @Success      201      {object}  driving.SetupResponse
// @Failure      400      {object}  ErrorResponse  "Malformed body"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      422      {object}  ErrorResponse  "Invalid input"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleGetMe godoc
// @Summary      Current analyst
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Account deleted"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), GetAuthContext(r.Context()).UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleListUsers godoc
// @Summary      List analysts
// @Description  Every account, ordered by name. Admin only.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.UserSummary
// @Failure      403  {object}  ErrorResponse  "Admin only"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]*domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToSummary())
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateUser godoc
// @Summary      Create analyst
// @Description  Admin only
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateUserRequest  true  "Analyst details"
// @Success      201      {object}  domain.UserSummary
// @Failure      403      {object}  ErrorResponse  "Admin only"
// @Failure      409      {object}  ErrorResponse  "Email already registered"
// @Failure      422      {object}  ErrorResponse  "Invalid input"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleGetUser godoc
// @Summary      Get analyst
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.UserSummary
// @Failure      404  {object}  ErrorResponse  "Not found"
// @Router       /users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleUpdateUser godoc
// @Summary      Update analyst
// @Description  Renames, changes role or (de)activates an account. Role changes and deactivation end the analyst's sessions.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        request  body      driving.UpdateUserRequest  true  "Fields to change"
// @Success      200      {object}  domain.UserSummary
// @Failure      404      {object}  ErrorResponse  "Not found"
// @Failure      422      {object}  ErrorResponse  "Unknown role"
// @Router       /users/{id} [patch]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.userService.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleSetPassword godoc
// @Summary      Reset password
// @Description  Sets an analyst's password and ends their sessions. Admin only.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "User ID"
// @Param        request  body      SetPasswordRequest  true  "New password"
// @Success      200      {object}  StatusResponse
// @Failure      404      {object}  ErrorResponse  "Not found"
// @Failure      422      {object}  ErrorResponse  "Password too short"
// @Router       /users/{id}/password [put]
func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.userService.SetPassword(r.Context(), r.PathValue("id"), req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleDeleteUser godoc
// @Summary      Delete analyst
// @Description  Removes the account and ends its sessions. Admin only.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Not found"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.userService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}
