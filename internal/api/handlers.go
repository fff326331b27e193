package api

import (
	"report-service-go/internal/api/handlers"
	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/statistics"
)

// Handlers groups every API handler.
type Handlers struct {
	Documents  *handlers.DocumentHandler
	Reports    *handlers.ReportHandler
	Statistics *handlers.StatisticsHandler
}

// Deps are the collaborators the handlers need. Log may be nil.
type Deps struct {
	Service    pdf.Service
	Stats      *statistics.Statistics
	Engine     handlers.Engine
	Log        handlers.BackendCounter
	BatchLimit int
}

// NewHandlers creates the handlers.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		Documents:  handlers.NewDocumentHandler(deps.Service, deps.BatchLimit),
		Reports:    handlers.NewReportHandler(deps.Service),
		Statistics: handlers.NewStatisticsHandler(deps.Stats, deps.Engine, deps.Log),
	}
}
