package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type presignResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serviceError maps domain sentinels onto the status codes the client
// translates back into the same sentinels.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrorLoginAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrorInvalidLoginPassword),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "validation error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decode(w, r, &creds) {
		return
	}

	if _, err := s.users.Register(r.Context(), creds.Username, creds.Password); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decode(w, r, &creds) {
		return
	}

	pair, err := s.users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.cases.List(r.Context(), userID(r))
	if err != nil {
		serviceError(w, err)
		return
	}
	if cases == nil {
		cases = []models.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var c models.Case
	if !decode(w, r, &c) {
		return
	}

	created, err := s.cases.Create(r.Context(), userID(r), c)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	var c models.Case
	if !decode(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")

	updated, err := s.cases.Update(r.Context(), userID(r), c)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	if err := s.cases.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.cases.ListReports(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var rep models.Report
	if !decode(w, r, &rep) {
		return
	}
	rep.CaseID = chi.URLParam(r, "id")

	created, err := s.cases.CreateReport(r.Context(), userID(r), rep)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.cases.GetPresignedPutURL(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presignResponse{Key: key, URL: url})
}
