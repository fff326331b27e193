package handlers

import (
	"context"
	"errors"
	"net/http"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/domain/pdf"

	"github.com/gin-gonic/gin"
)

// ErrInvalidRequest is returned for bodies that cannot be decoded.
var ErrInvalidRequest = errors.New("invalid request")

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	Primary  string   `json:"primary_error,omitempty"`
	Fallback string   `json:"fallback_error,omitempty"`
}

func determineErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, document.ErrMalformedContent):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}

	var verr *document.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	var gerr *pdf.GenerationError
	if errors.As(err, &gerr) {
		resp.Error = "document generation failed"
		if gerr.Primary != nil {
			resp.Primary = gerr.Primary.Error()
		}
		if gerr.Fallback != nil {
			resp.Fallback = gerr.Fallback.Error()
		}
	}
	return resp
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(determineErrorStatus(err), newErrorResponse(err))
}
