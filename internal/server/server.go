package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gatebook/internal/app"
	"gatebook/internal/ratelimit"
	"gatebook/internal/util"
	"gatebook/pkg/auth"
	"gatebook/pkg/domain"

	"log/slog"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App          *app.App
	LoginLimiter *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints for the visitor-management backend.
type Server struct {
	app          *app.App
	loginLimiter *ratelimit.FixedWindowLimiter
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:          cfg.App,
		loginLimiter: cfg.LoginLimiter,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the ambient middleware
// applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// visitors
	s.mux.Handle("/api/visitors", s.authenticated(s.handleVisitors))
	s.mux.Handle("/api/visitors/", s.authenticated(s.handleVisitorByID))

	// units
	s.mux.Handle("/api/units", s.authenticated(s.handleUnits))

	// company profile
	s.mux.HandleFunc("/api/company", s.handleCompany)

	// chats
	s.mux.HandleFunc("/api/chats", s.handleChats)
	s.mux.Handle("/api/chats/active", s.authenticated(s.handleActiveChat))
	s.mux.HandleFunc("/api/chats/", s.handleChatByID)

	// admin
	s.mux.Handle("/api/admin/users", s.authenticated(s.handleAdminUsers))
	s.mux.Handle("/api/admin/users/", s.authenticated(s.handleAdminUserByID))
	s.mux.Handle("/api/admin/chats", s.authenticated(s.handleAdminChats))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// auth handlers
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts, try again later") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		s.audit(r, "login", "failure", "username", req.Username)
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req editCredentialsRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.app.EditCredentials(user, user.ID, req.Username, req.Password, req.ConfirmPassword)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "edit_credentials", "success", "user_id", user.ID)
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}

// visitor handlers
func (s *Server) handleVisitors(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		visitors, err := s.app.ListVisitors(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": visitors, "count": len(visitors)})
	case http.MethodPost:
		var req registerVisitorRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		visitor, err := s.app.RegisterVisitor(user, app.RegisterVisitorInput{
			Name:     req.Name,
			Contact:  req.Contact,
			Purpose:  req.Purpose,
			Block:    req.Block,
			HouseNo:  req.HouseNo,
			Vehicle:  req.Vehicle,
			CarBrand: req.CarBrand,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, visitor)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVisitorByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/visitors/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		s.handleVisitor(w, r, user, id)
	case "approve", "reject", "check-in", "check-out":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleVisitorTransition(w, r, user, id, action)
	case "photo":
		s.handleVisitorPhoto(w, r, user, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleVisitor(w http.ResponseWriter, r *http.Request, user domain.User, id int64) {
	switch r.Method {
	case http.MethodGet:
		visitor, err := s.app.GetVisitor(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visitor)
	case http.MethodPatch:
		var req editVisitorRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		visitor, err := s.app.EditVisitor(user, id, app.EditVisitorInput{
			Name:     req.Name,
			Contact:  req.Contact,
			Purpose:  req.Purpose,
			Block:    req.Block,
			HouseNo:  req.HouseNo,
			Vehicle:  req.Vehicle,
			CarBrand: req.CarBrand,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visitor)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVisitorTransition(w http.ResponseWriter, r *http.Request, user domain.User, id int64, action string) {
	var visitor domain.Visitor
	var err error
	switch action {
	case "approve":
		visitor, err = s.app.ApproveVisitor(user, id)
	case "reject":
		visitor, err = s.app.RejectVisitor(user, id)
	case "check-in":
		visitor, err = s.app.CheckInVisitor(user, id)
	case "check-out":
		visitor, err = s.app.CheckOutVisitor(user, id)
	}
	if err != nil {
		s.audit(r, "visitor_"+action, "failure", "visitor_id", id, "actor_id", user.ID)
		writeAppError(w, err)
		return
	}
	s.audit(r, "visitor_"+action, "success", "visitor_id", id, "actor_id", user.ID)
	writeJSON(w, http.StatusOK, visitor)
}

func (s *Server) handleVisitorPhoto(w http.ResponseWriter, r *http.Request, user domain.User, id int64) {
	switch r.Method {
	case http.MethodPut:
		contentType := r.Header.Get("Content-Type")
		visitor, err := s.app.AttachVisitorPhoto(r.Context(), user, id, io.LimitReader(r.Body, 10<<20), r.ContentLength, contentType)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visitor)
	case http.MethodGet:
		url, err := s.app.VisitorPhotoURL(r.Context(), user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	default:
		methodNotAllowed(w)
	}
}

// unit handlers
func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		units, err := s.app.ListUnits()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": units, "count": len(units)})
	case http.MethodPost:
		var req unitRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		unit, err := s.app.AddUnit(user, req.Block, req.HouseNo)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, unit)
	case http.MethodDelete:
		var req unitRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.DeleteUnit(user, req.Block, req.HouseNo); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// company profile handlers
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The profile backs the public welcome screen, no auth required.
		info, err := s.app.CompanyInfo()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodPut:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.CompanyInfo
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		info, err := s.app.UpdateCompanyInfo(user, req)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "company_update", "success", "actor_id", user.ID)
		writeJSON(w, http.StatusOK, info)
	default:
		methodNotAllowed(w)
	}
}

// chat handlers
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		// Starting a chat does not require a session; the front-desk
		// kiosk submits anonymous threads.
		var req startChatRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		var user *domain.User
		if u, ok := s.authorize(r); ok {
			user = &u
		}
		thread, err := s.app.StartThread(r.Context(), user, req.Name, req.Unit, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, thread)
	case http.MethodGet:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		threads, err := s.app.UserThreads(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": threads, "count": len(threads)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleActiveChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	thread, ok, err := s.app.ActiveThread(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no active thread")
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		thread, err := s.app.GetThread(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, thread)
	case "reply":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req chatMessageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		thread, err := s.app.UserReply(r.Context(), user, id, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, thread)
	case "admin-reply":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req chatMessageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		thread, err := s.app.AdminReply(user, id, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "chat_admin_reply", "success", "thread_id", id, "actor_id", user.ID)
		writeJSON(w, http.StatusOK, thread)
	case "dismiss":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DismissThread(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// admin handlers
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.app.ListUsers(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users, "count": len(users)})
	case http.MethodPost:
		var req createUserRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := s.app.CreateUser(user, req.Username, req.Password, domain.Role(strings.ToLower(req.Role)), req.UnitNo)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "user_create", "success", "user_id", created.ID, "actor_id", user.ID)
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	idPart := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	if idPart == "" || strings.Contains(idPart, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req adminUserUpdateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Role != "" {
			updated, err := s.app.ChangeRole(user, id, domain.Role(strings.ToLower(req.Role)))
			if err != nil {
				s.audit(r, "role_change", "failure", "user_id", id, "actor_id", user.ID)
				writeAppError(w, err)
				return
			}
			s.audit(r, "role_change", "success", "user_id", id, "actor_id", user.ID)
			writeJSON(w, http.StatusOK, updated)
			return
		}
		updated, err := s.app.EditCredentials(user, id, req.Username, req.Password, req.ConfirmPassword)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.app.DeleteUser(user, id); err != nil {
			s.audit(r, "user_delete", "failure", "user_id", id, "actor_id", user.ID)
			writeAppError(w, err)
			return
		}
		s.audit(r, "user_delete", "success", "user_id", id, "actor_id", user.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAdminChats(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	threads, err := s.app.StaffThreads(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": threads, "count": len(threads)})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type editCredentialsRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UnitNo   string `json:"unitNo"`
}

type adminUserUpdateRequest struct {
	Role            string `json:"role"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type registerVisitorRequest struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Purpose  string `json:"purpose"`
	Block    string `json:"block"`
	HouseNo  string `json:"houseNo"`
	Vehicle  string `json:"vehicle"`
	CarBrand string `json:"carBrand"`
}

type editVisitorRequest struct {
	Name     *string `json:"name"`
	Contact  *string `json:"contact"`
	Purpose  *string `json:"purpose"`
	Block    *string `json:"block"`
	HouseNo  *string `json:"houseNo"`
	Vehicle  *string `json:"vehicle"`
	CarBrand *string `json:"carBrand"`
}

type unitRequest struct {
	Block   string `json:"block"`
	HouseNo string `json:"houseNo"`
}

type startChatRequest struct {
	Name    string `json:"name"`
	Unit    string `json:"unit"`
	Message string `json:"message"`
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application sentinel errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrVisitorNotFound),
		errors.Is(err, app.ErrThreadNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrLastAdminProtected),
		errors.Is(err, app.ErrSelfDeleteForbidden),
		errors.Is(err, app.ErrInvalidTransition),
		errors.Is(err, app.ErrDuplicateUnit),
		errors.Is(err, app.ErrThreadLocked),
		errors.Is(err, app.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrUsernameRequired),
		errors.Is(err, app.ErrPasswordMismatch),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, app.ErrVisitorFieldsRequired),
		errors.Is(err, app.ErrUnitFieldsRequired),
		errors.Is(err, app.ErrMessageRequired),
		errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
