package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/techmail/internal/notify"
	"github.com/vrsandeep/techmail/internal/recipient"
)

type filterRequest struct {
	Value any   `json:"value"`
	Args  []any `json:"args"`
}

type actionRequest struct {
	Args []any `json:"args"`
}

type hooksResponse struct {
	Filters []string `json:"filters"`
	Actions []string `json:"actions"`
}

// handleListHooks lists the filter and action names that can be dispatched.
func (s *Server) handleListHooks(w http.ResponseWriter, r *http.Request) {
	filters, actions := s.app.Hooks().Names()
	RespondWithJSON(w, http.StatusOK, hooksResponse{Filters: filters, Actions: actions})
}

// handleApplyFilter runs a registered filter over the posted value.
func (s *Server) handleApplyFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.app.Hooks().HasFilter(name) {
		RespondWithError(w, http.StatusNotFound, "Unknown filter: "+name)
		return
	}

	var payload filterRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	value, err := s.app.Hooks().ApplyFilters(r.Context(), name, payload.Value, payload.Args...)
	if err != nil {
		s.respondHookError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"value": value})
}

// handleDoAction runs every action registered under the name.
func (s *Server) handleDoAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.app.Hooks().HasAction(name) {
		RespondWithError(w, http.StatusNotFound, "Unknown action: "+name)
		return
	}

	var payload actionRequest
	if err := decodeJSON(r, &payload, true); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := s.app.Hooks().DoAction(r.Context(), name, payload.Args...); err != nil {
		s.respondHookError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondHookError(w http.ResponseWriter, err error) {
	if errors.Is(err, notify.ErrBadArguments) || errors.Is(err, recipient.ErrInvalidAddress) {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.WithError(err).Error("Hook dispatch failed")
	RespondWithError(w, http.StatusInternalServerError, "Hook dispatch failed")
}
