package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/logger"
	"github.com/ogulcanaydogan/liteclient/pkg/auth"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string            `json:"token,omitempty"`
	User    model.SessionUser `json:"user"`
	Expires time.Time         `json:"expires"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, s.opts.MaxBodySize, &req); err != nil {
		writeError(w, err)
		return
	}

	token, session, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, unauthorized("Invalid email or password."))
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("login", zap.Error(err))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.Expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: session.User, Expires: session.Expires})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), sessionToken(r)); err != nil {
		logger.FromContext(r.Context()).Error("logout", zap.Error(err))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, unauthorized("No active session."))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, Expires: session.Expires})
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.procedures.ListCustomers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomerInfo(w http.ResponseWriter, r *http.Request) {
	in := model.CustomerInfoInput{EndUserID: chi.URLParam(r, "id")}
	detail, err := s.procedures.GetCustomerInfo(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	// Reject before reading the body; the router repeats the check.
	if auth.SessionFromContext(r.Context()) == nil {
		writeError(w, unauthorized("Admin session required."))
		return
	}

	var in model.BudgetCreateRequest
	if err := decodeJSON(w, r, s.opts.MaxBodySize, &in); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.procedures.CreateBudget(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAssignBudget(w http.ResponseWriter, r *http.Request) {
	if auth.SessionFromContext(r.Context()) == nil {
		writeError(w, unauthorized("Admin session required."))
		return
	}

	var in model.BudgetAssignment
	if err := decodeJSON(w, r, s.opts.MaxBodySize, &in); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.procedures.AssignBudget(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
