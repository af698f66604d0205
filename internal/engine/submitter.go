package engine

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// ResultWriter hands a finished result to the external store.
type ResultWriter interface {
	WriteResult(ctx context.Context, result *model.ExamResult) error
}

// ResultWriterFunc adapts a function to ResultWriter.
type ResultWriterFunc func(ctx context.Context, result *model.ExamResult) error

// WriteResult implements ResultWriter.
func (f ResultWriterFunc) WriteResult(ctx context.Context, result *model.ExamResult) error {
	return f(ctx, result)
}

// Submit ends the session: it stops both countdowns, scores the answers once
// and writes the result. After COMPLETED it returns the stored result without
// writing again. If the write fails the result is kept and the next Submit
// retries the same result without rescoring.
func (s *Session) Submit(ctx context.Context) (*model.ExamResult, error) {
	return s.submit(ctx, false)
}

// LastError returns the error of the most recent failed write, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Result returns the scored result once submission has started.
func (s *Session) Result() *model.ExamResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) forceSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	if _, err := s.submit(ctx, true); err != nil {
		s.log.Error().Err(err).Msg("Forced submission failed")
	}
}

func (s *Session) submit(ctx context.Context, forced bool) (*model.ExamResult, error) {
	s.mu.Lock()
	if s.status == model.SessionStatusCompleted {
		r := s.result
		s.mu.Unlock()
		return r, nil
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	var events []Event
	if s.status == model.SessionStatusInProgress {
		s.status = model.SessionStatusSubmitting
		s.stopTimersLocked()
		s.result = s.buildResultLocked(forced)
		events = append(events, s.eventLocked(EventSubmitting))
	}
	s.inFlight = true
	result := s.result
	s.mu.Unlock()

	s.emit(events...)

	err := s.writer.WriteResult(ctx, result)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.lastErr = err
		evt := s.eventLocked(EventSubmitFailed)
		evt.Error = err.Error()
		s.mu.Unlock()

		s.log.Error().Err(err).Msg("Result write failed")
		s.emit(evt)
		return result, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	s.status = model.SessionStatusCompleted
	s.lastErr = nil
	evt := s.eventLocked(EventCompleted)
	evt.Result = result
	s.mu.Unlock()

	s.log.Info().
		Int("score", result.Score).
		Int("violations", result.ViolationCount).
		Bool("forced", result.ForcedByTimeout).
		Msg("Exam submitted")
	s.emit(evt)
	return result, nil
}

func (s *Session) buildResultLocked(forced bool) *model.ExamResult {
	return &model.ExamResult{
		StudentID:       s.student.ID,
		StudentName:     s.student.Name,
		ExamID:          s.examID,
		ExamTitle:       s.examTitle,
		Score:           Score(s.questions, s.answers),
		MaxScore:        MaxScore(s.questions),
		TotalQuestions:  len(s.questions),
		AnsweredCount:   len(s.answers),
		ViolationCount:  s.violations,
		StartedAt:       s.startedAt,
		SubmittedAt:     s.now(),
		ForcedByTimeout: forced,
	}
}
