package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/pkg/storage"
)

type reportEventsStub struct {
	events map[string]*models.Event
}

func (s *reportEventsStub) FindByID(_ context.Context, id string) (*models.Event, error) {
	if event, ok := s.events[id]; ok {
		return event, nil
	}
	return nil, sql.ErrNoRows
}

type reportAssignmentsStub struct {
	rows []models.AssignmentDetail
}

func (s *reportAssignmentsStub) ListByEvent(_ context.Context, _ models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	return s.rows, nil
}

type reportAttendanceStub struct {
	rows    []models.AttendanceDetail
	summary models.AttendanceSummary
}

func (s *reportAttendanceStub) ListByEvent(_ context.Context, _ string) ([]models.AttendanceDetail, error) {
	return s.rows, nil
}

func (s *reportAttendanceStub) SummaryByEvent(_ context.Context, _ string) (*models.AttendanceSummary, error) {
	summary := s.summary
	return &summary, nil
}

func reportFixtures() (*reportEventsStub, *reportAssignmentsStub, *reportAttendanceStub) {
	confirmedAt := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	zone := "Entrée Nord"
	checkIn := time.Date(2024, 6, 1, 8, 12, 0, 0, time.UTC)

	events := &reportEventsStub{events: map[string]*models.Event{
		"event-1": {ID: "event-1", Name: "Festival de Jazz"},
	}}
	assignments := &reportAssignmentsStub{rows: []models.AssignmentDetail{
		{
			Assignment: models.Assignment{
				ID:          "as-1",
				Role:        models.AssignmentRolePrimary,
				Status:      models.AssignmentStatusConfirmed,
				ConfirmedAt: &confirmedAt,
			},
			AgentFirstName: "Karim",
			AgentLastName:  "Benali",
			AgentEmail:     "karim@example.com",
			ZoneName:       &zone,
		},
	}}
	attendance := &reportAttendanceStub{
		rows: []models.AttendanceDetail{
			{
				Attendance: models.Attendance{
					ID:        "att-1",
					CheckInAt: &checkIn,
					Late:      true,
					Status:    models.AttendanceStatusCheckedIn,
				},
				AgentFirstName: "Karim",
				AgentLastName:  "Benali",
				ZoneName:       &zone,
			},
		},
		summary: models.AttendanceSummary{Expected: 4, CheckedIn: 1, Late: 1, Rate: 0.25},
	}
	return events, assignments, attendance
}

func TestReportServiceStaffingCSV(t *testing.T) {
	events, assignments, attendance := reportFixtures()
	svc := NewReportService(events, assignments, attendance, nil, nil, zap.NewNop())

	report, err := svc.StaffingReport(context.Background(), "event-1", ReportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "affectations_event-1.csv", report.FileName)
	assert.Equal(t, "text/csv", report.ContentType)
	assert.Empty(t, report.DownloadToken)

	content := string(report.Content)
	assert.Contains(t, content, "Agent,Email,Zone,Role,Statut")
	assert.Contains(t, content, "Karim Benali")
	assert.Contains(t, content, "confirmée")
	assert.Contains(t, content, "Entrée Nord")
}

func TestReportServiceStaffingPDF(t *testing.T) {
	events, assignments, attendance := reportFixtures()
	svc := NewReportService(events, assignments, attendance, nil, nil, zap.NewNop())

	report, err := svc.StaffingReport(context.Background(), "event-1", ReportFormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "affectations_event-1.pdf", report.FileName)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Content), "%PDF"))
}

func TestReportServiceUnknownEvent(t *testing.T) {
	events, assignments, attendance := reportFixtures()
	svc := NewReportService(events, assignments, attendance, nil, nil, zap.NewNop())

	_, err := svc.StaffingReport(context.Background(), "ghost", ReportFormatCSV)
	assert.Error(t, err)
}

func TestReportServiceInvalidFormat(t *testing.T) {
	events, assignments, attendance := reportFixtures()
	svc := NewReportService(events, assignments, attendance, nil, nil, zap.NewNop())

	_, err := svc.StaffingReport(context.Background(), "event-1", ReportFormat("xlsx"))
	assert.Error(t, err)
}

func TestReportServiceAttendanceSummaryRow(t *testing.T) {
	events, assignments, attendance := reportFixtures()
	svc := NewReportService(events, assignments, attendance, nil, nil, zap.NewNop())

	report, err := svc.AttendanceReport(context.Background(), "event-1", ReportFormatCSV)
	require.NoError(t, err)

	content := string(report.Content)
	assert.Contains(t, content, "TOTAL")
	assert.Contains(t, content, "1/4 présents")
	assert.Contains(t, content, "1 retards")
}

func TestReportServiceArchiveRoundTrip(t *testing.T) {
	events, assignments, attendance := reportFixtures()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	svc := NewReportService(events, assignments, attendance, store, signer, zap.NewNop())

	report, err := svc.StaffingReport(context.Background(), "event-1", ReportFormatCSV)
	require.NoError(t, err)
	require.NotEmpty(t, report.DownloadToken)
	require.NotNil(t, report.DownloadExpiresAt)

	downloaded, err := svc.Download(report.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, report.Content, downloaded.Content)
	assert.Equal(t, "text/csv", downloaded.ContentType)
	assert.Equal(t, report.FileName, downloaded.FileName)
}

func TestReportServiceDownloadBadToken(t *testing.T) {
	events, assignments, attendance := reportFixtures()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	svc := NewReportService(events, assignments, attendance, store, signer, zap.NewNop())

	_, err = svc.Download("not.a.valid.token")
	assert.Error(t, err)
}
