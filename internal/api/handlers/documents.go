package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxBatchSize bounds the number of documents in one batch request.
const MaxBatchSize = 50

// DocumentHandler serves generic document generation.
type DocumentHandler struct {
	service    pdf.Service
	batchLimit int
}

// NewDocumentHandler creates a handler; batchLimit bounds concurrent renders per batch.
func NewDocumentHandler(service pdf.Service, batchLimit int) *DocumentHandler {
	return &DocumentHandler{service: service, batchLimit: batchLimit}
}

// Generate renders one {config, content} request and streams the PDF back.
func (h *DocumentHandler) Generate(c *gin.Context) {
	var req pdf.Request
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req.Config, req.Content)
	if err != nil {
		logger.Error("Failed to generate document",
			zap.String("report_number", req.Config.ReportNumber),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	writePDF(c, req.Config.ReportNumber, res)
}

type batchRequest struct {
	Documents []pdf.Request `json:"documents"`
}

type batchItem struct {
	GenerationID string         `json:"generation_id,omitempty"`
	Backend      string         `json:"backend,omitempty"`
	Pages        int            `json:"pages,omitempty"`
	PDF          []byte         `json:"pdf,omitempty"`
	Error        *errorResponse `json:"error,omitempty"`
}

type batchResponse struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Documents []batchItem `json:"documents"`
}

// GenerateBatch renders several documents concurrently. Each item carries
// either a base64 PDF or its own error; the response is 200 unless the body
// itself is invalid.
func (h *DocumentHandler) GenerateBatch(c *gin.Context) {
	var req batchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > MaxBatchSize {
		writeError(c, fmt.Errorf("%w: a batch holds 1 to %d documents", ErrInvalidRequest, MaxBatchSize))
		return
	}

	results := h.service.GenerateBatch(c.Request.Context(), req.Documents, h.batchLimit)

	resp := batchResponse{Documents: make([]batchItem, len(results))}
	for i, r := range results {
		if r.Err != nil {
			e := newErrorResponse(r.Err)
			resp.Documents[i] = batchItem{Error: &e}
			resp.Failed++
			continue
		}
		resp.Documents[i] = batchItem{
			GenerationID: r.Result.GenerationID,
			Backend:      string(r.Result.Backend),
			Pages:        r.Result.Pages,
			PDF:          r.Result.PDF,
		}
		resp.Succeeded++
	}
	c.JSON(http.StatusOK, resp)
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		logger.Warn("Failed to parse request",
			zap.String("content_type", c.GetHeader("Content-Type")),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func writePDF(c *gin.Context, reportNumber string, res *pdf.Result) {
	c.Header("X-Generation-ID", res.GenerationID)
	c.Header("X-Render-Backend", string(res.Backend))
	c.Header("X-Page-Count", strconv.Itoa(res.Pages))
	c.Header("X-Total-Processing-Time", strconv.FormatFloat(res.Duration.Seconds(), 'f', 3, 64))
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", fileName(reportNumber)))
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

func fileName(reportNumber string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(reportNumber))
	if name == "" {
		name = "report"
	}
	return name + ".pdf"
}
