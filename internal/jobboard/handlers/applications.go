package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
)

func (a *API) apply(w http.ResponseWriter, r *http.Request, params map[string]string) {
	jobID, err := pathID(params, "id", "job")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	application, err := a.applications.Apply(r.Context(), jobID, caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, payload{
		"message":     "Application submitted successfully",
		"application": application,
	})
}

func (a *API) myApplications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	applications, err := a.applications.ListForApplicant(r.Context(), caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if applications == nil {
		applications = []models.Application{}
	}
	writeSuccess(w, http.StatusOK, payload{"applications": applications})
}

func (a *API) jobApplications(w http.ResponseWriter, r *http.Request, params map[string]string) {
	jobID, err := pathID(params, "jobId", "job")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	job, applications, err := a.applications.ListForJob(r.Context(), jobID, caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if applications == nil {
		applications = []models.Application{}
	}
	writeSuccess(w, http.StatusOK, payload{
		"job":          job,
		"applications": applications,
	})
}

func (a *API) setStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "application")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req statusUpdateRequest
	if err := a.decodeJSON(w, r, validation.StatusUpdate, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	application, err := a.applications.SetStatus(r.Context(), id, req.Status, caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{
		"message":     "Application status updated successfully",
		"application": application,
	})
}
