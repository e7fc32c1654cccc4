package models

import (
	"strings"

	dErrors "clientpulse/pkg/domain-errors"
	pstrings "clientpulse/pkg/platform/strings"
)

// CreateClientRequest is the admin payload for registering a canonical client.
type CreateClientRequest struct {
	CanonicalName string `json:"canonical_name"`
	Country       string `json:"country"`
	Segment       string `json:"segment"`
}

func (r *CreateClientRequest) Normalize() {
	r.CanonicalName = pstrings.CollapseSpace(r.CanonicalName)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	r.Segment = strings.TrimSpace(r.Segment)
}

func (r *CreateClientRequest) Validate() error {
	r.Normalize()
	if r.CanonicalName == "" {
		return dErrors.New(dErrors.CodeValidation, "canonical_name is required")
	}
	if r.Country != "" && len(r.Country) != 2 {
		return dErrors.New(dErrors.CodeValidation, "country must be a two-letter code")
	}
	return nil
}

// CreateAliasRequest maps a display name onto an existing canonical name.
type CreateAliasRequest struct {
	DisplayName   string `json:"display_name"`
	CanonicalName string `json:"canonical_name"`
}

func (r *CreateAliasRequest) Normalize() {
	r.DisplayName = pstrings.CollapseSpace(r.DisplayName)
	r.CanonicalName = pstrings.CollapseSpace(r.CanonicalName)
}

func (r *CreateAliasRequest) Validate() error {
	r.Normalize()
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	if r.CanonicalName == "" {
		return dErrors.New(dErrors.CodeValidation, "canonical_name is required")
	}
	return nil
}
