package dto

import "time"

// StudentDashboardResponse summarises a student's progress across assignments.
type StudentDashboardResponse struct {
	StudentID   string               `json:"studentId"`
	Summary     ProgressSummary      `json:"summary"`
	Assignments []AssignmentProgress `json:"assignments"`
}

// ProgressSummary captures aggregated statistics for the student dashboard.
type ProgressSummary struct {
	TotalAssignments int     `json:"totalAssignments"`
	Submitted        int     `json:"submitted"`
	Graded           int     `json:"graded"`
	Pending          int     `json:"pending"`
	Late             int     `json:"late"`
	AverageScore     float64 `json:"averageScore"`
}

// AssignmentProgress describes the state of a single assignment relative to a student.
type AssignmentProgress struct {
	AssignmentID string     `json:"assignmentId"`
	Title        string     `json:"title"`
	DueDate      time.Time  `json:"dueDate"`
	Status       string     `json:"status"`
	SubmissionID string     `json:"submissionId,omitempty"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	Late         bool       `json:"late"`
	Total        *float64   `json:"total,omitempty"`
	MaxMarks     float64    `json:"maxMarks"`
}

// TeacherDashboardResponse summarises grading work per assignment for a teacher.
type TeacherDashboardResponse struct {
	TeacherID   string               `json:"teacherId"`
	Assignments []AssignmentWorkload `json:"assignments"`
	Totals      WorkloadTotals       `json:"totals"`
}

// AssignmentWorkload counts submissions of one assignment.
type AssignmentWorkload struct {
	AssignmentID    string    `json:"assignmentId"`
	Title           string    `json:"title"`
	ClassID         string    `json:"classId"`
	DueDate         time.Time `json:"dueDate"`
	Submissions     int       `json:"submissions"`
	Graded          int       `json:"graded"`
	AwaitingGrading int       `json:"awaitingGrading"`
}

// WorkloadTotals aggregates the per assignment counts.
type WorkloadTotals struct {
	Assignments     int `json:"assignments"`
	Submissions     int `json:"submissions"`
	Graded          int `json:"graded"`
	AwaitingGrading int `json:"awaitingGrading"`
}
