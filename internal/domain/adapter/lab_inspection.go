package adapter

import (
	"context"
	"fmt"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/domain/pdf"
)

const (
	LabInspectionType           = "lab-inspection"
	LabInspectionTitle          = "Lab Inspection Report"
	labInspectionDocumentNumber = "QA-F-LAB-01"
)

// MoistureStatus is the outcome of comparing measured moisture against its limit.
type MoistureStatus string

const (
	MoistureWithin  MoistureStatus = "Within Tolerance"
	MoistureExceeds MoistureStatus = "Exceeds Tolerance"
	MoistureUnknown MoistureStatus = ""
)

// LabInspection is an incoming material inspection record.
type LabInspection struct {
	Letterhead

	InspectionDate string `json:"inspectionDate"`

	ChallanNumber string   `json:"challanNumber"`
	SupplierName  string   `json:"supplierName"`
	MaterialType  string   `json:"materialType"`
	LotNumber     string   `json:"lotNumber"`
	Quantity      *float64 `json:"quantity"`
	Unit          string   `json:"unit"`

	// MoisturePercent is the measured moisture; MoistureTolerance the
	// highest acceptable value. Both in percent.
	MoisturePercent   *float64 `json:"moisturePercent"`
	MoistureTolerance *float64 `json:"moistureTolerance"`

	TestingParameters []document.ParameterRow `json:"testingParameters"`
	Remarks           string                  `json:"remarks"`

	CheckedBy  Person  `json:"checkedBy"`
	VerifiedBy *Person `json:"verifiedBy,omitempty"`
}

// Moisture returns the tolerance status. Without both readings it is unknown.
func (r LabInspection) Moisture() MoistureStatus {
	if r.MoisturePercent == nil || r.MoistureTolerance == nil {
		return MoistureUnknown
	}
	if *r.MoisturePercent <= *r.MoistureTolerance {
		return MoistureWithin
	}
	return MoistureExceeds
}

// LabInspectionDocument maps the record onto the document model.
func LabInspectionDocument(r LabInspection) (document.Config, document.Content) {
	cfg := r.config(LabInspectionTitle, LabInspectionType, labInspectionDocumentNumber)

	quantity := number(r.Quantity)
	if r.Quantity != nil && r.Unit != "" {
		quantity = document.String(fmt.Sprintf("%g %s", *r.Quantity, r.Unit))
	}
	moisture := document.Null()
	if r.MoisturePercent != nil {
		moisture = document.String(fmt.Sprintf("%g%%", round1(*r.MoisturePercent)))
	}
	tolerance := document.Null()
	if r.MoistureTolerance != nil {
		tolerance = document.String(fmt.Sprintf("max %g%%", round1(*r.MoistureTolerance)))
	}

	material := &document.FormSection{
		Title: "Material Details",
		Fields: []document.Field{
			{Key: "challanNumber", Value: text(r.ChallanNumber)},
			{Key: "supplierName", Value: text(r.SupplierName)},
			{Key: "materialType", Value: text(r.MaterialType)},
			{Key: "lotNumber", Value: text(r.LotNumber)},
			{Key: "quantity", Value: quantity},
			{Key: "inspectionDate", Value: text(r.InspectionDate)},
			{Key: "moistureContent", Value: moisture},
			{Key: "moistureTolerance", Value: tolerance},
			{Key: "moistureStatus", Value: text(string(r.Moisture()))},
		},
	}

	rows := r.TestingParameters
	if rows == nil {
		rows = []document.ParameterRow{}
	}
	parameters := &document.ParametersSection{
		Title:      "Testing Parameters",
		Parameters: rows,
		Remarks:    r.Remarks,
	}

	content := document.Content{
		Header: document.Header{
			Title:    LabInspectionTitle,
			Subtitle: r.MaterialType,
			Date:     r.InspectionDate,
		},
		Sections: document.Sections{material, parameters},
		Footer: document.Footer{
			Inspector:    r.CheckedBy.signatory(),
			Manager:      r.VerifiedBy.optionalSignatory(),
			ReportNumber: r.ReportNumber,
		},
	}
	return cfg, content
}

// GenerateLabInspectionPDF maps and generates the record.
func GenerateLabInspectionPDF(ctx context.Context, svc pdf.Service, r LabInspection) (*pdf.Result, error) {
	cfg, content := LabInspectionDocument(r)
	return svc.Generate(ctx, cfg, content)
}
