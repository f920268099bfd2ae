package api

import (
	"errors"
	"net/http"

	"github.com/vrsandeep/techmail/internal/recipient"
)

type technicalEmailSettings struct {
	// Address is the stored value, empty when none is saved.
	Address string `json:"address"`
	// Effective is the address notifications go to.
	Effective string `json:"effective"`
	Default   string `json:"default"`
	// Declared is the value currently declared in the config file.
	Declared string `json:"declared,omitempty"`
}

func (s *Server) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"address": s.app.Resolver().Resolve()})
}

func (s *Server) handleGetTechnicalEmail(w http.ResponseWriter, r *http.Request) {
	stored, err := s.app.Store().GetSetting(recipient.SettingKey)
	if err != nil {
		s.log.WithError(err).Error("Failed to read technical address")
		RespondWithError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, s.technicalEmailSettings(stored))
}

func (s *Server) handleUpdateTechnicalEmail(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r, &payload, false); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if _, err := s.app.Resolver().Save(payload.Address); err != nil {
		if errors.Is(err, recipient.ErrInvalidAddress) {
			RespondWithError(w, http.StatusBadRequest, "Please enter a valid email address")
			return
		}
		s.log.WithError(err).Error("Failed to save technical address")
		RespondWithError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	stored, _ := s.app.Store().GetSetting(recipient.SettingKey)
	RespondWithJSON(w, http.StatusOK, s.technicalEmailSettings(stored))
}

func (s *Server) technicalEmailSettings(stored string) technicalEmailSettings {
	declared, _ := s.app.Patcher().Current()
	return technicalEmailSettings{
		Address:   stored,
		Effective: s.app.Resolver().Resolve(),
		Default:   s.app.Resolver().Default(),
		Declared:  declared,
	}
}
