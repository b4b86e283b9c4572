package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
	"github.com/TrashMob-eco/trashmob-api/pkg/export"
)

// ReportFormat enumerates supported export encodings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportMetricsReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeMetricsRecord, error)
}

type exportEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// ExportResult is a rendered report ready to stream to the caller.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders reviewer-facing event metrics reports.
type ExportService struct {
	metrics exportMetricsReader
	events  exportEventReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package defaults.
func NewExportService(metrics exportMetricsReader, events exportEventReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{metrics: metrics, events: events, csv: csv, pdf: pdf, logger: logger}
}

// EventMetricsReport renders the full submission table for an event, with a
// totals footer over counted rows, in the requested format.
func (s *ExportService) EventMetricsReport(ctx context.Context, eventID string, format ReportFormat) (*ExportResult, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	records, err := s.metrics.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	dataset := buildMetricsDataset(records)
	title := fmt.Sprintf("Event Metrics Report - %s", event.Name)

	var payload []byte
	var contentType string
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	return &ExportResult{
		Filename:    buildReportFilename(event.Name, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildMetricsDataset(records []models.EventAttendeeMetricsRecord) export.Dataset {
	headers := []string{"Attendee", "Status", "Bags", "Weight (lb)", "Duration (min)", "Submitted At"}

	rows := make([]map[string]string, 0, len(records))
	var totalBags, totalDuration int
	var totalWeight float64
	for i := range records {
		record := &records[i]

		row := map[string]string{
			"Attendee":     record.UserName,
			"Status":       string(record.Status),
			"Submitted At": record.CreatedAt.UTC().Format(time.RFC3339),
		}
		if bags := record.EffectiveBags(); bags != nil {
			row["Bags"] = fmt.Sprintf("%d", *bags)
			if record.Counted() {
				totalBags += *bags
			}
		}
		if pounds := record.EffectiveWeightPounds(); pounds != nil {
			row["Weight (lb)"] = fmt.Sprintf("%.2f", *pounds)
			if record.Counted() {
				totalWeight += *pounds
			}
		}
		if duration := record.EffectiveDuration(); duration != nil {
			row["Duration (min)"] = fmt.Sprintf("%d", *duration)
			if record.Counted() {
				totalDuration += *duration
			}
		}
		rows = append(rows, row)
	}

	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: map[string]string{
			"Attendee":       "Totals (counted)",
			"Bags":           fmt.Sprintf("%d", totalBags),
			"Weight (lb)":    fmt.Sprintf("%.2f", totalWeight),
			"Duration (min)": fmt.Sprintf("%d", totalDuration),
		},
	}
}

func buildReportFilename(eventName string, format ReportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_metrics_%s.%s", sanitizeFilename(eventName), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "event"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
