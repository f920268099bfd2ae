package api

import (
	"net/http"

	"github.com/vrsandeep/techmail/internal/release"
	"github.com/vrsandeep/techmail/internal/updates"
)

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}

type updateCheckResponse struct {
	Installed       string                 `json:"installed"`
	Remote          *release.Descriptor    `json:"remote"`
	UpdateAvailable bool                   `json:"update_available"`
	Update          *updates.Advertisement `json:"update,omitempty"`
}

// handleUpdateCheck drops the cached descriptor and checks again. The
// "version" query parameter overrides the configured installed version.
func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	installed := r.URL.Query().Get("version")
	if installed == "" {
		installed = s.app.Config().Plugin.Version
	} else if !updates.IsValidVersion(installed) {
		RespondWithError(w, http.StatusBadRequest, "Invalid version")
		return
	}

	if err := s.app.ReleaseCache().Invalidate(); err != nil {
		s.log.WithError(err).Warn("Could not clear cached release descriptor")
	}
	d, ok := s.app.ReleaseCache().Get(r.Context())
	if !ok {
		RespondWithError(w, http.StatusBadGateway, "Release descriptor unavailable")
		return
	}

	adv, available := s.app.Reconciler().CheckForUpdate(r.Context(), installed)
	RespondWithJSON(w, http.StatusOK, updateCheckResponse{
		Installed:       installed,
		Remote:          d,
		UpdateAvailable: available,
		Update:          adv,
	})
}

func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobName string `json:"job_name"`
	}
	if err := decodeJSON(r, &payload, false); err != nil || payload.JobName == "" {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	err := s.app.JobManager().RunJob(payload.JobName)
	if err != nil {
		RespondWithError(w, http.StatusConflict, err.Error()) // 409 Conflict if a job is already running
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Job '" + payload.JobName + "' started successfully.",
	})
}

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.app.JobManager().GetStatus()
	RespondWithJSON(w, http.StatusOK, statuses)
}
