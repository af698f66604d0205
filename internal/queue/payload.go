package queue

import (
	"encoding/json"
)

// AnswerPayload is one autosaved answer. A nil Answer means the question was cleared.
type AnswerPayload struct {
	StudentID  int             `json:"student_id"`
	ExamID     string          `json:"exam_id"`
	QuestionID string          `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
	Timestamp  int64           `json:"timestamp"`
}

// ViolationPayload is one recorded focus-loss violation.
type ViolationPayload struct {
	StudentID       int    `json:"student_id"`
	ExamID          string `json:"exam_id"`
	Signal          string `json:"signal"`
	ViolationNumber int    `json:"violation_number"`
	PenaltySeconds  int    `json:"penalty_seconds"`
	Timestamp       int64  `json:"timestamp"`
}

// QuestionOrderEntry is one displayed question with the stored index of each displayed option.
type QuestionOrderEntry struct {
	QuestionID  string `json:"question_id"`
	OptionOrder []int  `json:"option_order,omitempty"`
}

// QuestionOrderPayload records the randomization of one attempt.
type QuestionOrderPayload struct {
	StudentID int                  `json:"student_id"`
	ExamID    string               `json:"exam_id"`
	Order     []QuestionOrderEntry `json:"order"`
}
