package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budgetwatch/internal/core"
)

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", "Login", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	remember := r.Form.Get("remember") != ""

	user, err := s.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			slog.ErrorContext(r.Context(), "Login failed", "error", err)
		}
		s.setFlash(w, "danger", "Login unsuccessful. Please check email and password.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	session, err := s.auth.IssueSession(r.Context(), user, remember)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue session", "error", err, "user_id", user.ID)
		s.setFlash(w, "danger", "Something went wrong. Please try again.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setSessionCookie(w, session.Token, remember, session.ExpiresAt)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", "Register", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := sanitizeInput(r.Form.Get("username"))
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	if _, err := s.auth.Register(r.Context(), username, email, password); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			s.setFlash(w, "danger", "The "+verr.Field+" "+verr.Message+".")
		} else {
			slog.ErrorContext(r.Context(), "Registration failed", "error", err)
			s.setFlash(w, "danger", "Something went wrong. Please try again.")
		}
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	s.setFlash(w, "success", "Your account has been created! You are now able to log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		if err := s.auth.DestroySession(r.Context(), c.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to destroy session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "settings.html", "Settings", nil)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user := currentUser(r.Context())
	username := sanitizeInput(r.Form.Get("username"))
	email := sanitizeInput(r.Form.Get("email"))

	if err := s.auth.UpdateProfile(r.Context(), user, username, email); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			s.setFlash(w, "danger", "The "+verr.Field+" "+verr.Message+".")
		} else {
			slog.ErrorContext(r.Context(), "Profile update failed", "error", err, "user_id", user.ID)
			s.setFlash(w, "danger", "Something went wrong. Please try again.")
		}
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	s.setFlash(w, "success", "Your account has been updated!")
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

func (s *Server) handleResetRequestForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "reset_request.html", "Reset Password", nil)
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := sanitizeInput(r.Form.Get("email"))

	if err := s.auth.RequestPasswordReset(r.Context(), email); err != nil {
		slog.ErrorContext(r.Context(), "Reset request failed", "error", err)
		s.setFlash(w, "danger", "Something went wrong. Please try again.")
		http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
		return
	}

	// Always the same notice, whether or not the email exists
	s.setFlash(w, "info", "An email has been sent with instructions to reset your password.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleResetTokenForm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := s.auth.VerifyResetToken(r.Context(), token); err != nil {
		s.setFlash(w, "danger", "That is an invalid or expired token.")
		http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
		return
	}
	s.render(w, r, "reset_token.html", "Reset Password", nil)
}

func (s *Server) handleResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	user, err := s.auth.VerifyResetToken(r.Context(), token)
	if err != nil {
		s.setFlash(w, "danger", "That is an invalid or expired token.")
		http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	password := r.Form.Get("password")
	confirm := r.Form.Get("confirm_password")
	if password != confirm {
		s.setFlash(w, "danger", "Passwords must match.")
		http.Redirect(w, r, "/reset_password/"+token, http.StatusSeeOther)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), user, password); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			s.setFlash(w, "danger", "The "+verr.Field+" "+verr.Message+".")
		} else {
			slog.ErrorContext(r.Context(), "Password reset failed", "error", err, "user_id", user.ID)
			s.setFlash(w, "danger", "Something went wrong. Please try again.")
		}
		http.Redirect(w, r, "/reset_password/"+token, http.StatusSeeOther)
		return
	}

	s.setFlash(w, "success", "Your password has been updated! You are now able to log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
