package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam is an ordered collection of questions plus the metadata needed to start an attempt.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	EntryToken      string     `json:"entry_token,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	// SchoolAccess lists the schools allowed to sit the exam. Empty means every school.
	SchoolAccess []string   `json:"school_access,omitempty"`
	Status       ExamStatus `json:"status"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DurationSeconds returns the working time of one attempt.
func (e *Exam) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// InWindow reports whether t falls inside the scheduling window.
func (e *Exam) InWindow(t time.Time) bool {
	if e.ScheduledStart != nil && t.Before(*e.ScheduledStart) {
		return false
	}
	if e.ScheduledEnd != nil && t.After(*e.ScheduledEnd) {
		return false
	}
	return true
}

// AllowsSchool reports whether a student of the given school may take the exam.
func (e *Exam) AllowsSchool(school string) bool {
	if len(e.SchoolAccess) == 0 {
		return true
	}
	for _, s := range e.SchoolAccess {
		if s == school {
			return true
		}
	}
	return false
}

// JoinExamRequest is the identity + token confirmation sent before starting an exam.
type JoinExamRequest struct {
	EntryToken string `json:"entry_token" binding:"required,min=4,max=20,entry_token"`
	// ConfirmName must repeat the logged-in student's name.
	ConfirmName string `json:"confirm_name" binding:"required,min=2,max=100"`
}

// LobbyExam is the student-facing listing of an exam, without token or questions.
type LobbyExam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	Open            bool       `json:"open"`
}

// Lobby returns the listing view of the exam as seen at now.
func (e *Exam) Lobby(now time.Time) LobbyExam {
	return LobbyExam{
		ID:              e.ID,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
		ScheduledStart:  e.ScheduledStart,
		ScheduledEnd:    e.ScheduledEnd,
		Open:            e.Status == ExamStatusPublished && e.InWindow(now),
	}
}
