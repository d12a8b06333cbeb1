package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
)

// logoField is the multipart field carrying a company logo.
const logoField = "logo"

func (a *API) registerCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req companyRegisterRequest
	if err := a.decodeJSON(w, r, validation.CompanyRegister, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	company, err := a.companies.Register(r.Context(), req.Name, caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, payload{
		"message": "Company registered successfully",
		"company": company,
	})
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	companies, err := a.companies.ListMine(r.Context(), caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"company": companies})
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "company")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	company, err := a.companies.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"company": company})
}

// updateCompany accepts either multipart form data with an optional logo
// file or a JSON body without one.
func (a *API) updateCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "company")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	update := &models.CompanyUpdate{ID: id}
	if isMultipart(r) {
		form, cleanup, err := a.parseMultipart(w, r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		defer cleanup()

		fields := companyUpdateRequest{
			Name:        formValue(form, "name"),
			Description: formValue(form, "description"),
			Website:     formValue(form, "website"),
			Location:    formValue(form, "location"),
		}
		raw, _ := json.Marshal(fields)
		if err := a.validator.Validate(validation.CompanyUpdate, raw); err != nil {
			a.writeError(w, r, err)
			return
		}
		update.Name = fields.Name
		update.Description = fields.Description
		update.Website = fields.Website
		update.Location = fields.Location

		logo, closeLogo, err := openLogo(form)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		defer closeLogo()
		update.Logo = logo
	} else {
		var req companyUpdateRequest
		if err := a.decodeJSON(w, r, validation.CompanyUpdate, &req); err != nil {
			a.writeError(w, r, err)
			return
		}
		update.Name = req.Name
		update.Description = req.Description
		update.Website = req.Website
		update.Location = req.Location
	}

	company, err := a.companies.Update(r.Context(), caller(r).ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{
		"message": "Company updated successfully",
		"company": company,
	})
}

func (a *API) uploadLogo(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "company")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !isMultipart(r) {
		a.writeError(w, r, fmt.Errorf("%w: multipart form expected", e.ErrInvalidInput))
		return
	}

	form, cleanup, err := a.parseMultipart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer cleanup()

	logo, closeLogo, err := openLogo(form)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer closeLogo()
	if logo == nil {
		a.writeError(w, r, fmt.Errorf("%w: no logo file provided", e.ErrInvalidInput))
		return
	}

	company, err := a.companies.UploadLogo(r.Context(), id, caller(r).ID, logo)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{
		"message": "Logo uploaded successfully",
		"logo":    company.Logo,
		"company": company,
	})
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params, "id", "company")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.companies.Delete(r.Context(), id, caller(r).ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"message": "Company deleted successfully"})
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart reads a size-capped multipart body. The returned cleanup
// removes temporary files.
func (a *API) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	if err := r.ParseMultipartForm(a.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("%w: upload too large", e.ErrInvalidInput)
		}
		return nil, nil, fmt.Errorf("%w: malformed multipart form", e.ErrInvalidInput)
	}
	return r.MultipartForm, func() { _ = r.MultipartForm.RemoveAll() }, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// openLogo returns the logo file of form, or nil when none was sent.
func openLogo(form *multipart.Form) (*models.LogoUpload, func(), error) {
	files := form.File[logoField]
	if len(files) == 0 {
		return nil, func() {}, nil
	}
	header := files[0]
	f, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open logo: %w", err)
	}
	return &models.LogoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     f,
	}, func() { _ = f.Close() }, nil
}
