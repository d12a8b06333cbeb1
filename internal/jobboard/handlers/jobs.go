package handlers

import (
	"fmt"
	"net/http"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
	"github.com/google/uuid"
)

func (a *API) postJob(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req jobPostRequest
	if err := a.decodeJSON(w, r, validation.JobPost, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput))
		return
	}

	job, err := a.jobs.Post(r.Context(), caller(r).ID, &models.JobDraft{
		Title:            req.Title,
		Description:      req.Description,
		Requirements:     req.Requirements.list,
		RequirementsText: req.Requirements.text,
		Salary:           string(req.Salary),
		ExperienceLevel:  string(req.ExperienceLevel),
		Location:         req.Location,
		JobType:          req.JobType,
		Position:         string(req.Position),
		CompanyID:        companyID,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, payload{
		"message": "New job created successfully.",
		"job":     job,
	})
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	jobs, err := a.jobs.ListAll(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeSuccess(w, http.StatusOK, payload{"jobs": jobs})
}

func (a *API) listRecruiterJobs(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	jobs, err := a.jobs.ListByRecruiter(r.Context(), caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []models.RecruiterJob{}
	}
	writeSuccess(w, http.StatusOK, payload{"jobs": jobs})
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "job")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	job, err := a.jobs.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"job": job})
}

func (a *API) deleteJob(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "job")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.jobs.Delete(r.Context(), id, caller(r).ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"message": "Job deleted successfully"})
}
