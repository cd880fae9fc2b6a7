package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type stubTranscripts struct {
	transcript *models.Transcript
	err        error
}

func (s stubTranscripts) Transcript(ctx context.Context, actor models.Actor, studentID int64) (*models.Transcript, error) {
	return s.transcript, s.err
}

type stubDue struct {
	items []models.AssignmentDue
}

func (s stubDue) DueForStudent(ctx context.Context, actor models.Actor) ([]models.AssignmentDue, error) {
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	return s.items, nil
}

func sampleTranscript() *models.Transcript {
	gpa, points := 3.0, 3.0
	return &models.Transcript{
		Student: models.UserInfo{ID: 1, Name: "Ada Lovelace", Role: models.RoleStudent},
		Records: []models.FinalRecord{
			{OfferingID: 1, CourseCode: "CS101", CourseName: "Intro", TermCode: "2024FA", Credits: 3, FinalPercent: pct(84), Letter: "B", GPAPoints: &points, Passed: true},
		},
		Cumulative: models.CumulativeGPA{StudentID: 1, GPA: &gpa, Credits: 3, Courses: 1},
		IssuedAt:   time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestExportServiceTranscriptCSV(t *testing.T) {
	svc := NewExportService(stubTranscripts{transcript: sampleTranscript()}, stubDue{}, nil)

	file, err := svc.Transcript(context.Background(), student(1), 0, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "transcript_Ada_Lovelace_20250105.csv", file.Filename)
	body := string(file.Data)
	assert.Contains(t, body, "CS101")
	assert.Contains(t, body, "84.00")
	assert.Contains(t, body, "Cumulative GPA")
}

func TestExportServiceTranscriptBinaryFormats(t *testing.T) {
	svc := NewExportService(stubTranscripts{transcript: sampleTranscript()}, stubDue{}, nil)

	pdf, err := svc.Transcript(context.Background(), student(1), 0, "PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Data), "%PDF"))

	xlsx, err := svc.Transcript(context.Background(), student(1), 0, "xlsx")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(xlsx.Data), "PK"))
	assert.True(t, strings.HasSuffix(xlsx.Filename, ".xlsx"))

	_, err = svc.Transcript(context.Background(), student(1), 0, "docx")
	assertAppError(t, err, appErrors.ErrValidation, "format must be csv, pdf or xlsx")
}

func TestExportServiceTranscriptPropagatesAccessErrors(t *testing.T) {
	svc := NewExportService(stubTranscripts{err: appErrors.ErrForbidden}, stubDue{}, nil)

	_, err := svc.Transcript(context.Background(), owner, 1, "csv")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportServiceCalendar(t *testing.T) {
	due := time.Date(2025, 2, 1, 23, 59, 0, 0, time.UTC)
	svc := NewExportService(nil, stubDue{items: []models.AssignmentDue{
		{Assignment: models.Assignment{ID: 7, Title: "Lab 1", Description: "Linked lists", DueAt: &due}, OfferingCode: "CS101"},
		{Assignment: models.Assignment{ID: 8, Title: "Undated"}, OfferingCode: "CS101"},
	}}, nil)

	file, err := svc.Calendar(context.Background(), student(1))
	require.NoError(t, err)
	assert.Equal(t, "assignments.ics", file.Filename)
	body := string(file.Data)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:assignment-7@kanvas")
	assert.Contains(t, body, "SUMMARY:[CS101] Lab 1")
	assert.Contains(t, body, "DTSTART:20250201T235900Z")
	assert.NotContains(t, body, "assignment-8@kanvas")

	_, err = svc.Calendar(context.Background(), owner)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
