// Package models defines the wire model exchanged verbatim between the
// local cache store and the remote case store. Field names and optionality
// must match on both sides or merges silently drop data.
package models

import (
	"encoding/json"
	"time"
)

// Case is a unit of investigative work, owned by an identity scope.
// The id is assigned client-side at creation and never reassigned by
// either store; it is the join key between local and remote copies.
type Case struct {
	// ID is a globally unique, client-generated identifier.
	ID string `json:"id"`

	// Name is the subject or working title of the case.
	Name string `json:"name"`

	// Purpose tags why the case was opened (e.g. "fta_recovery").
	Purpose string `json:"purpose"`

	// Notes holds free-form investigator notes.
	Notes *string `json:"notes,omitempty"`

	// AttestationAccepted records that the investigator accepted the
	// lawful-use attestation when the case was created.
	AttestationAccepted bool `json:"attestationAccepted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// AutoDeleteAt, when set, is the moment the case becomes eligible for
	// the background expiry sweep.
	AutoDeleteAt *time.Time `json:"autoDeleteAt,omitempty"`

	// Risk scoring fields, written by the scoring collaborator.
	FTAScore     *float64 `json:"ftaScore,omitempty"`
	FTARiskLevel *string  `json:"ftaRiskLevel,omitempty"`

	// MugshotURL references a photo of the subject. When absent it may be
	// filled in from the local photo cache during enrichment.
	MugshotURL *string `json:"mugshotUrl,omitempty"`

	Charges       *string  `json:"charges,omitempty"`
	BondAmount    *float64 `json:"bondAmount,omitempty"`
	PrimaryTarget *string  `json:"primaryTarget,omitempty"`
}

// Merge overlays patch onto base and returns the result. Identity and
// creation time always come from base. Scalar fields are taken from patch
// when non-zero, optional fields when non-nil; everything else is
// preserved from base unchanged.
func Merge(base, patch Case) Case {
	out := base

	if patch.Name != "" {
		out.Name = patch.Name
	}
	if patch.Purpose != "" {
		out.Purpose = patch.Purpose
	}
	if patch.AttestationAccepted {
		out.AttestationAccepted = true
	}
	if !patch.UpdatedAt.IsZero() {
		out.UpdatedAt = patch.UpdatedAt
	}
	if patch.Notes != nil {
		out.Notes = patch.Notes
	}
	if patch.AutoDeleteAt != nil {
		out.AutoDeleteAt = patch.AutoDeleteAt
	}
	if patch.FTAScore != nil {
		out.FTAScore = patch.FTAScore
	}
	if patch.FTARiskLevel != nil {
		out.FTARiskLevel = patch.FTARiskLevel
	}
	if patch.MugshotURL != nil {
		out.MugshotURL = patch.MugshotURL
	}
	if patch.Charges != nil {
		out.Charges = patch.Charges
	}
	if patch.BondAmount != nil {
		out.BondAmount = patch.BondAmount
	}
	if patch.PrimaryTarget != nil {
		out.PrimaryTarget = patch.PrimaryTarget
	}

	return out
}

// Expired reports whether the case's TTL has elapsed at the given moment.
func (c Case) Expired(now time.Time) bool {
	return c.AutoDeleteAt != nil && !c.AutoDeleteAt.After(now)
}

// Report is a child record of exactly one case. ParsedData is an opaque
// payload from the document-analysis collaborator, stored and returned
// without interpretation. Reports are deleted when their case is deleted.
type Report struct {
	ID         string          `json:"id"`
	CaseID     string          `json:"caseId"`
	PDFPath    *string         `json:"pdfPath,omitempty"`
	ParsedData json.RawMessage `json:"parsedData"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AuditEntry is a fire-and-forget record of a user-visible action.
type AuditEntry struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
