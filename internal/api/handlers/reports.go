package handlers

import (
	"report-service-go/internal/domain/adapter"
	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler serves the domain record endpoints.
type ReportHandler struct {
	service pdf.Service
}

func NewReportHandler(service pdf.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

// LabInspection renders a lab inspection record.
func (h *ReportHandler) LabInspection(c *gin.Context) {
	var rec adapter.LabInspection
	if err := bindJSON(c, &rec); err != nil {
		writeError(c, err)
		return
	}

	res, err := adapter.GenerateLabInspectionPDF(c.Request.Context(), h.service, rec)
	if err != nil {
		logger.Error("Failed to generate lab inspection report",
			zap.String("report_number", rec.ReportNumber),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	writePDF(c, rec.ReportNumber, res)
}

// ComplianceAudit renders a compliance audit record.
func (h *ReportHandler) ComplianceAudit(c *gin.Context) {
	var rec adapter.ComplianceAudit
	if err := bindJSON(c, &rec); err != nil {
		writeError(c, err)
		return
	}

	res, err := adapter.GenerateComplianceAuditPDF(c.Request.Context(), h.service, rec)
	if err != nil {
		logger.Error("Failed to generate compliance audit report",
			zap.String("report_number", rec.ReportNumber),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	writePDF(c, rec.ReportNumber, res)
}
