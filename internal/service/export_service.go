package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/pkg/export"
)

const calendarProductID = "-//kanvas//assignments//EN"

type transcriptSource interface {
	Transcript(ctx context.Context, actor models.Actor, studentID int64) (*models.Transcript, error)
}

type dueSource interface {
	DueForStudent(ctx context.Context, actor models.Actor) ([]models.AssignmentDue, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders transcripts and the assignment calendar feed.
type ExportService struct {
	grades      transcriptSource
	assignments dueSource
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(grades transcriptSource, assignments dueSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		grades:      grades,
		assignments: assignments,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Transcript renders the student's finals in the requested format.
func (s *ExportService) Transcript(ctx context.Context, actor models.Actor, studentID int64, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if err != nil {
		return nil, validationError(err, "format must be csv, pdf or xlsx")
	}
	transcript, err := s.grades.Transcript(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	renderer := export.RendererFor(format)
	payload, err := renderer.Render(transcriptDataset(transcript))
	if err != nil {
		return nil, internalError(err, "failed to render transcript")
	}
	s.logger.Info("transcript exported",
		zap.Int64("student_id", transcript.Student.ID),
		zap.String("format", string(format)),
		zap.Int64("actor_id", actor.ID),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("transcript_%s_%s.%s", sanitizeFilename(transcript.Student.Name), transcript.IssuedAt.Format("20060102"), format),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

// Calendar builds an iCalendar feed with one event per dated assignment.
func (s *ExportService) Calendar(ctx context.Context, actor models.Actor) (*ExportFile, error) {
	due, err := s.assignments.DueForStudent(ctx, actor)
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	stamp := s.now()
	for _, a := range due {
		if a.DueAt == nil {
			continue
		}
		event := cal.AddEvent("assignment-" + strconv.FormatInt(a.ID, 10) + "@kanvas")
		event.SetDtStampTime(stamp)
		event.SetStartAt(a.DueAt.UTC())
		event.SetEndAt(a.DueAt.UTC())
		event.SetSummary(fmt.Sprintf("[%s] %s", a.OfferingCode, a.Title))
		if a.Description != "" {
			event.SetDescription(a.Description)
		}
	}
	return &ExportFile{
		Filename:    "assignments.ics",
		ContentType: "text/calendar; charset=utf-8",
		Data:        []byte(cal.Serialize()),
	}, nil
}

func transcriptDataset(t *models.Transcript) export.Dataset {
	headers := []string{"Term", "Course", "Title", "Credits", "Final %", "Letter", "GPA Points", "Passed"}
	rows := make([]map[string]string, 0, len(t.Records)+1)
	for _, r := range t.Records {
		row := map[string]string{
			"Term":    r.TermCode,
			"Course":  r.CourseCode,
			"Title":   r.CourseName,
			"Credits": strconv.Itoa(r.Credits),
			"Letter":  r.Letter,
		}
		if r.FinalPercent != nil {
			row["Final %"] = fmt.Sprintf("%.2f", *r.FinalPercent)
			row["Passed"] = strconv.FormatBool(r.Passed)
		}
		if r.GPAPoints != nil {
			row["GPA Points"] = fmt.Sprintf("%.1f", *r.GPAPoints)
		}
		rows = append(rows, row)
	}
	summary := map[string]string{"Title": "Cumulative GPA", "Credits": strconv.Itoa(t.Cumulative.Credits)}
	if t.Cumulative.GPA != nil {
		summary["GPA Points"] = fmt.Sprintf("%.2f", *t.Cumulative.GPA)
	}
	rows = append(rows, summary)

	return export.Dataset{
		Title:   fmt.Sprintf("Transcript - %s (%s)", t.Student.Name, t.IssuedAt.Format("2006-01-02")),
		Headers: headers,
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
