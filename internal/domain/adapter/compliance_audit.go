package adapter

import (
	"context"
	"fmt"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/domain/pdf"
)

const (
	ComplianceAuditType           = "compliance-audit"
	ComplianceAuditTitle          = "Compliance Audit Report"
	complianceAuditDocumentNumber = "QA-F-AUD-01"

	// CompliantThreshold is the lowest score, in percent, rated compliant.
	CompliantThreshold = 80.0
)

// AuditCheck is one audited requirement.
type AuditCheck struct {
	Requirement string `json:"requirement"`
	Compliant   bool   `json:"compliant"`
	Note        string `json:"note,omitempty"`
}

// ComplianceAudit is a compliance audit record.
type ComplianceAudit struct {
	Letterhead

	AuditDate   string       `json:"auditDate"`
	AuditorName string       `json:"auditorName"`
	AuditScope  string       `json:"auditScope"`
	Checks      []AuditCheck `json:"checks"`
	Observation string       `json:"observation,omitempty"`

	ApprovedBy *Person `json:"approvedBy,omitempty"`
}

// Score returns the share of compliant checks in percent, rounded to one
// decimal. ok is false when there are no checks.
func (a ComplianceAudit) Score() (score float64, ok bool) {
	if len(a.Checks) == 0 {
		return 0, false
	}
	passed := 0
	for _, c := range a.Checks {
		if c.Compliant {
			passed++
		}
	}
	return round1(float64(passed) * 100 / float64(len(a.Checks))), true
}

// Rating is "Compliant", "Non-Compliant" or "" without checks.
func (a ComplianceAudit) Rating() string {
	score, ok := a.Score()
	switch {
	case !ok:
		return ""
	case score >= CompliantThreshold:
		return "Compliant"
	default:
		return "Non-Compliant"
	}
}

// ComplianceAuditDocument maps the audit onto a single form section.
func ComplianceAuditDocument(a ComplianceAudit) (document.Config, document.Content) {
	cfg := a.config(ComplianceAuditTitle, ComplianceAuditType, complianceAuditDocumentNumber)

	passed := 0
	for _, c := range a.Checks {
		if c.Compliant {
			passed++
		}
	}
	score := document.Null()
	if s, ok := a.Score(); ok {
		score = document.String(fmt.Sprintf("%g%%", s))
	}
	checks := document.Null()
	if len(a.Checks) > 0 {
		checks = document.String(fmt.Sprintf("%d of %d", passed, len(a.Checks)))
	}

	summary := &document.FormSection{
		Title: "Audit Summary",
		Fields: []document.Field{
			{Key: "auditorName", Value: text(a.AuditorName)},
			{Key: "auditDate", Value: text(a.AuditDate)},
			{Key: "auditScope", Value: text(a.AuditScope)},
			{Key: "department", Value: text(a.Department)},
			{Key: "checksPassed", Value: checks},
			{Key: "complianceScore", Value: score},
			{Key: "complianceRating", Value: text(a.Rating())},
			{Key: "observation", Value: text(a.Observation)},
		},
	}

	content := document.Content{
		Header: document.Header{
			Title:    ComplianceAuditTitle,
			Subtitle: a.AuditScope,
			Date:     a.AuditDate,
		},
		Sections: document.Sections{summary},
		Footer: document.Footer{
			Inspector:    document.Signatory{Name: a.AuditorName, Date: a.AuditDate},
			Manager:      a.ApprovedBy.optionalSignatory(),
			ReportNumber: a.ReportNumber,
		},
	}
	return cfg, content
}

// GenerateComplianceAuditPDF maps and generates the audit.
func GenerateComplianceAuditPDF(ctx context.Context, svc pdf.Service, a ComplianceAudit) (*pdf.Result, error) {
	cfg, content := ComplianceAuditDocument(a)
	return svc.Generate(ctx, cfg, content)
}
