package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is the immutable outcome of one exam session.
type ExamResult struct {
	StudentID      int       `json:"student_id"`
	StudentName    string    `json:"student_name"`
	ExamID         uuid.UUID `json:"exam_id"`
	ExamTitle      string    `json:"exam_title"`
	Score          int       `json:"score"`
	// MaxScore sums the points of choice questions only. Essays are graded
	// outside the engine and always score 0 here, so they are left out.
	MaxScore       int       `json:"max_score"`
	TotalQuestions int       `json:"total_questions"`
	AnsweredCount  int       `json:"answered_count"`
	ViolationCount int       `json:"violation_count"`
	StartedAt      time.Time `json:"started_at"`
	SubmittedAt    time.Time `json:"submitted_at"`
	// ForcedByTimeout is set when the countdown, not the student, ended the session.
	ForcedByTimeout bool `json:"forced_by_timeout"`
}
