package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/export"
	"github.com/secuteam/gwm-api/pkg/storage"
)

// ReportFormat selects the rendering backend for staffing reports.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportAssignmentReader interface {
	ListByEvent(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
}

type reportAttendanceReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error)
	SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error)
}

type reportArchive interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// Report is a rendered export ready to stream to the client. When archiving
// is configured the report also carries a signed download token.
type Report struct {
	FileName          string
	ContentType       string
	Content           []byte
	DownloadToken     string
	DownloadExpiresAt *time.Time
}

// ReportService renders staffing and attendance exports for one event.
// Exports are streamed inline and, when an archive is configured, kept on
// disk behind signed download links.
type ReportService struct {
	events      assignmentEventReader
	assignments reportAssignmentReader
	attendance  reportAttendanceReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	archive     reportArchive
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
}

// NewReportService constructs a ReportService instance. Both archive and
// signer may be nil, which disables the download-link flow.
func NewReportService(events assignmentEventReader, assignments reportAssignmentReader, attendance reportAttendanceReader, archive reportArchive, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		events:      events,
		assignments: assignments,
		attendance:  attendance,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		archive:     archive,
		signer:      signer,
		logger:      logger,
	}
}

// StaffingReport exports the active roster of an event.
func (s *ReportService) StaffingReport(ctx context.Context, eventID string, format ReportFormat) (*Report, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	rows, err := s.assignments.ListByEvent(ctx, models.AssignmentFilter{EventID: eventID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Agent", "Email", "Zone", "Role", "Statut", "Confirmé le"},
	}
	for _, row := range rows {
		zone := "-"
		if row.ZoneName != nil {
			zone = *row.ZoneName
		}
		confirmed := "-"
		if row.ConfirmedAt != nil {
			confirmed = row.ConfirmedAt.Format("2006-01-02 15:04")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Agent":       strings.TrimSpace(row.AgentFirstName + " " + row.AgentLastName),
			"Email":       row.AgentEmail,
			"Zone":        zone,
			"Role":        string(row.Role),
			"Statut":      row.Status.Label(),
			"Confirmé le": confirmed,
		})
	}

	title := fmt.Sprintf("Affectations - %s", event.Name)
	return s.render(dataset, title, fmt.Sprintf("affectations_%s", eventID), format)
}

// AttendanceReport exports the presence sheet of an event, with a summary
// line appended.
func (s *ReportService) AttendanceReport(ctx context.Context, eventID string, format ReportFormat) (*Report, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	rows, err := s.attendance.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance")
	}
	summary, err := s.attendance.SummaryByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance summary")
	}

	dataset := export.Dataset{
		Headers: []string{"Agent", "Zone", "Arrivée", "Départ", "Retard", "Parti tôt"},
	}
	for _, row := range rows {
		zone := "-"
		if row.ZoneName != nil {
			zone = *row.ZoneName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Agent":     strings.TrimSpace(row.AgentFirstName + " " + row.AgentLastName),
			"Zone":      zone,
			"Arrivée":   formatMoment(row.CheckInAt),
			"Départ":    formatMoment(row.CheckOutAt),
			"Retard":    formatFlag(row.Late),
			"Parti tôt": formatFlag(row.LeftEarly),
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"Agent":   "TOTAL",
		"Zone":    fmt.Sprintf("%d/%d présents", summary.CheckedIn, summary.Expected),
		"Arrivée": strconv.Itoa(summary.Late) + " retards",
	})

	title := fmt.Sprintf("Présences - %s", event.Name)
	return s.render(dataset, title, fmt.Sprintf("presences_%s", eventID), format)
}

func (s *ReportService) render(dataset export.Dataset, title, baseName string, format ReportFormat) (*Report, error) {
	var report *Report
	switch format {
	case ReportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		report = &Report{FileName: baseName + ".csv", ContentType: "text/csv", Content: content}
	case ReportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		report = &Report{FileName: baseName + ".pdf", ContentType: "application/pdf", Content: content}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	s.archiveReport(baseName, report)
	return report, nil
}

// archiveReport keeps a copy of the export on disk and attaches a signed
// download token. Archive failures only cost the download link, the inline
// response still carries the file.
func (s *ReportService) archiveReport(baseName string, report *Report) {
	if s.archive == nil || s.signer == nil {
		return
	}

	relPath := time.Now().UTC().Format("2006-01-02") + "/" + report.FileName
	saved, err := s.archive.Save(relPath, report.Content)
	if err != nil {
		s.logger.Warn("failed to archive report", zap.String("file", relPath), zap.Error(err))
		return
	}

	token, expiresAt, err := s.signer.Generate(baseName, saved)
	if err != nil {
		s.logger.Warn("failed to sign report download link", zap.String("file", saved), zap.Error(err))
		return
	}

	report.DownloadToken = token
	report.DownloadExpiresAt = &expiresAt
}

// Download resolves a signed token back to an archived export.
func (s *ReportService) Download(token string) (*Report, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report archive is not enabled")
	}

	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}

	file, err := s.archive.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived report not found")
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archived report")
	}

	report := &Report{FileName: relPath[strings.LastIndex(relPath, "/")+1:], Content: content, ContentType: "text/csv"}
	if strings.HasSuffix(relPath, ".pdf") {
		report.ContentType = "application/pdf"
	}
	return report, nil
}

func formatMoment(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}

func formatFlag(flag bool) string {
	if flag {
		return "oui"
	}
	return "non"
}
