// Package validation checks JSON request bodies against JSON Schemas
// before they are decoded.
package validation

import (
	"fmt"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Schema names.
const (
	Register        = "register"
	Login           = "login"
	CompanyRegister = "company_register"
	CompanyUpdate   = "company_update"
	JobPost         = "job_post"
	StatusUpdate    = "status_update"
)

const nonBlank = `{"type": "string", "minLength": 1}`

var schemas = map[string]string{
	Register: `{
		"type": "object",
		"required": ["name", "email", "password", "phoneNumber", "role"],
		"properties": {
			"name": ` + nonBlank + `,
			"email": {"type": "string", "minLength": 3, "maxLength": 320},
			"password": {"type": "string", "minLength": 1, "maxLength": 72},
			"phoneNumber": {"type": ["string", "number"]},
			"role": {"type": "string", "enum": ["user", "recruiter"]}
		}
	}`,
	Login: `{
		"type": "object",
		"required": ["email", "password", "role"],
		"properties": {
			"email": ` + nonBlank + `,
			"password": ` + nonBlank + `,
			"role": ` + nonBlank + `
		}
	}`,
	CompanyRegister: `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 120}
		}
	}`,
	CompanyUpdate: `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 120},
			"description": {"type": "string", "maxLength": 3000},
			"website": {"type": "string", "maxLength": 500},
			"location": {"type": "string", "maxLength": 200}
		}
	}`,
	JobPost: `{
		"type": "object",
		"required": ["title", "description", "salary", "experienceLevel", "location", "jobType", "position", "companyId"],
		"properties": {
			"title": {"type": "string", "minLength": 1, "maxLength": 200},
			"description": {"type": "string", "minLength": 1, "maxLength": 5000},
			"requirements": {
				"type": ["string", "array", "null"],
				"items": {"type": "string"}
			},
			"salary": {"type": ["number", "string"]},
			"experienceLevel": {"type": ["number", "string"]},
			"location": ` + nonBlank + `,
			"jobType": ` + nonBlank + `,
			"position": {"type": ["number", "string"]},
			"companyId": ` + nonBlank + `
		}
	}`,
	StatusUpdate: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string"}
		}
	}`,
}

// Validator holds the compiled request schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every request schema.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(schemas))}
	for name, raw := range schemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Validate checks body against the named schema. Violations are reported
// as ErrInvalidInput listing every failing field.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON body", e.ErrInvalidInput)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		msgs[i] = desc.String()
	}
	return fmt.Errorf("%w: %s", e.ErrInvalidInput, strings.Join(msgs, "; "))
}
