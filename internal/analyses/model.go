package analyses

import (
	"time"

	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
	"ats-backend/internal/scoring"
)

// Analysis is one persisted scoring run. Rows are append-only: a re-analysis
// creates a new Analysis.
type Analysis struct {
	ID             string              `json:"id"`
	UserID         string              `json:"userId"`
	DocumentID     string              `json:"documentId,omitempty"`
	Source         profile.Source      `json:"source"`
	TargetRole     string              `json:"targetRole,omitempty"`
	JobDescription string              `json:"jobDescription,omitempty"`
	PromptVersion  string              `json:"promptVersion"`
	PromptHash     string              `json:"promptHash,omitempty"`
	Provider       string              `json:"provider"`
	Model          string              `json:"model,omitempty"`
	Completeness   completeness.Report `json:"completeness"`
	Result         scoring.Result      `json:"result"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// OutcomeKind is the user-visible shape of a pipeline run.
type OutcomeKind string

const (
	OutcomeAnalyzed     OutcomeKind = "analyzed"
	OutcomeDegraded     OutcomeKind = "degraded"
	OutcomeInsufficient OutcomeKind = "insufficient_data"
)

// Outcome is the result of Service.Run. Analysis is nil for insufficient
// data, Remediation is nil otherwise.
type Outcome struct {
	Kind         OutcomeKind               `json:"outcome"`
	Completeness completeness.Report       `json:"completeness"`
	Analysis     *Analysis                 `json:"analysis,omitempty"`
	Remediation  *completeness.Remediation `json:"remediation,omitempty"`
}

// Submission is one analysis request. Exactly one of DocumentID, Document,
// Fields or Payload is set. ID is optional; queued jobs pick it up front so
// the caller can poll for the stored analysis.
type Submission struct {
	ID             string
	UserID         string
	DocumentID     string
	Document       *profile.Document
	Fields         map[string]string
	Payload        *profile.ThirdPartyProfile
	TargetRole     string
	JobDescription string
}
