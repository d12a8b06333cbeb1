package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
)

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// requirements accepts a comma-separated string, a list of strings or null.
type requirements struct {
	list []string
	text string
}

func (r *requirements) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '[':
		r.list = []string{}
		return json.Unmarshal(b, &r.list)
	default:
		return json.Unmarshal(b, &r.text)
	}
}

type registerRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	PhoneNumber flexString `json:"phoneNumber"`
	Role        string     `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type companyRegisterRequest struct {
	Name string `json:"name"`
}

type companyUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Location    string `json:"location"`
}

type jobPostRequest struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Requirements    requirements `json:"requirements"`
	Salary          flexString   `json:"salary"`
	ExperienceLevel flexString   `json:"experienceLevel"`
	Location        string       `json:"location"`
	JobType         string       `json:"jobType"`
	Position        flexString   `json:"position"`
	CompanyID       string       `json:"companyId"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// decodeJSON reads at most the configured number of bytes, validates them
// against schema and decodes them into dst.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, schema string, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body too large", e.ErrInvalidInput)
		}
		return fmt.Errorf("%w: unreadable request body", e.ErrInvalidInput)
	}
	if err := a.validator.Validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s", e.ErrInvalidInput, err.Error())
	}
	return nil
}
