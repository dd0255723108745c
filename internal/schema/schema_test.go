package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type questionDoc struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	MaxMarks float64 `json:"maxMarks"`
}

type assignmentDoc struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	ClassID        string        `json:"classId"`
	Description    string        `json:"description"`
	DueDate        string        `json:"dueDate"`
	Questions      []questionDoc `json:"questions"`
	TotalQuestions int           `json:"totalQuestions"`
	TotalMarks     float64       `json:"totalMarks"`
	CreatedBy      string        `json:"createdBy"`
}

func validAssignment() assignmentDoc {
	return assignmentDoc{
		ID:             "a-1",
		Title:          "Essay",
		ClassID:        "class-1",
		Description:    "Write an essay",
		DueDate:        "2026-11-01T10:00:00Z",
		Questions:      []questionDoc{{ID: "q1", Text: "Intro", MaxMarks: 10}},
		TotalQuestions: 1,
		TotalMarks:     10,
		CreatedBy:      "teacher-1",
	}
}

func TestValidateAcceptsWellFormedAssignment(t *testing.T) {
	require.NoError(t, Validate(KindAssignment, validAssignment()))
}

func TestValidateRejectsAssignmentWithoutQuestions(t *testing.T) {
	doc := validAssignment()
	doc.Questions = nil

	err := Validate(KindAssignment, doc)
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidateRejectsNonPositiveMaxMarks(t *testing.T) {
	doc := validAssignment()
	doc.Questions[0].MaxMarks = 0

	require.ErrorIs(t, Validate(KindAssignment, doc), ErrInvalidDocument)
}

func TestValidateRejectsUnknownSubmissionStatus(t *testing.T) {
	doc := map[string]interface{}{
		"id":           "s-1",
		"assignmentId": "a-1",
		"studentId":    "student-1",
		"files":        []map[string]interface{}{{"url": "https://cdn/x.pdf", "name": "x.pdf", "size": 12}},
		"submittedAt":  "2026-11-01T10:00:00Z",
		"status":       "archived",
	}

	require.ErrorIs(t, Validate(KindSubmission, doc), ErrInvalidDocument)

	doc["status"] = "submitted"
	require.NoError(t, Validate(KindSubmission, doc))
}

func TestValidateRejectsNegativeMark(t *testing.T) {
	doc := map[string]interface{}{
		"id":           "g-1",
		"submissionId": "s-1",
		"assignmentId": "a-1",
		"studentId":    "student-1",
		"teacherId":    "teacher-1",
		"marks":        []map[string]interface{}{{"questionId": "q1", "mark": -1}},
		"total":        0,
		"feedback":     "",
		"gradedAt":     "2026-11-01T10:00:00Z",
	}

	require.ErrorIs(t, Validate(KindGrade, doc), ErrInvalidDocument)
}

func TestValidateUnknownKind(t *testing.T) {
	require.ErrorIs(t, Validate(Kind("lesson"), map[string]string{}), ErrInvalidDocument)
}
