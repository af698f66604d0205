package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// ExamSession is the stored row of a student's exam attempt.
type ExamSession struct {
	ID             uuid.UUID     `json:"id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	StudentID      int           `json:"student_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	Status         SessionStatus `json:"status"`
	FinalScore     *int          `json:"final_score,omitempty"`
	ViolationCount int           `json:"violation_count"`
}

// RemainingSeconds returns the working time left for an attempt started at StartedAt.
func (s *ExamSession) RemainingSeconds(durationSeconds int, now time.Time) int {
	end := s.StartedAt.Add(time.Duration(durationSeconds) * time.Second)
	left := int(end.Sub(now) / time.Second)
	if left < 0 {
		return 0
	}
	if left > durationSeconds {
		return durationSeconds
	}
	return left
}
