package api

import (
	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/report"
)

// ReportPayload is the validation report response type (aliased from the report layer).
type ReportPayload = report.Payload

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.DocumentRecord `json:"documents" validate:"required"`
	Total     int                     `json:"total" example:"42" validate:"required"`
}

// GraphResponse is the document graph response type (aliased from the domain layer).
type GraphResponse = docservice.GraphView

// AnomalyResponse lists every anomaly found by the latest validation run.
type AnomalyResponse = models.AnomalyReport
