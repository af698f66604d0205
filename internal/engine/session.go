package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
)

const defaultSubmitTimeout = 10 * time.Second

// Options configures a Session.
type Options struct {
	AntiCheat model.AntiCheatConfig
	Scheduler Scheduler
	Writer    ResultWriter
	Sink      EventSink
	Rand      *rand.Rand

	// RemainingSeconds overrides the exam duration, e.g. when the attempt row
	// was created earlier and part of the working time is already spent.
	RemainingSeconds *int
	StartedAt        time.Time

	// SubmitTimeout bounds the forced submission triggered by the countdown.
	SubmitTimeout time.Duration
	Now           func() time.Time
	Log           zerolog.Logger
}

// Session is one student's attempt at one exam. The randomized question set
// is fixed at construction; everything else is mutated by student input and
// by the two countdowns.
type Session struct {
	mu sync.Mutex

	examID    uuid.UUID
	examTitle string
	student   model.StudentIdentity
	questions []model.Question
	monitor   focusMonitor

	sched         Scheduler
	writer        ResultWriter
	sink          EventSink
	now           func() time.Time
	submitTimeout time.Duration
	log           zerolog.Logger

	status          model.SessionStatus
	answers         map[int]model.Answer
	flagged         map[int]bool
	position        int
	remaining       int
	violations      int
	frozen          bool
	freezeRemaining int
	countdown       Task
	freezeTask      Task
	startedAt       time.Time

	result   *model.ExamResult
	inFlight bool
	lastErr  error
}

// NewSession randomizes the exam's questions and returns a session in
// IN_PROGRESS. The countdown does not run until Start is called.
func NewSession(exam *model.Exam, student model.StudentIdentity, opts Options) (*Session, error) {
	if len(exam.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.Writer == nil {
		return nil, errors.New("result writer is required")
	}
	for i := range exam.Questions {
		if err := exam.Questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("validate exam %s: %w", exam.ID, err)
		}
	}

	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = defaultSubmitTimeout
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Now()
	}

	remaining := exam.DurationSeconds()
	if opts.RemainingSeconds != nil {
		remaining = *opts.RemainingSeconds
	}
	if remaining < 0 {
		remaining = 0
	}

	s := &Session{
		examID:        exam.ID,
		examTitle:     exam.Title,
		student:       student,
		questions:     RandomizeExam(opts.Rand, exam.Questions),
		monitor:       focusMonitor{cfg: opts.AntiCheat},
		sched:         opts.Scheduler,
		writer:        opts.Writer,
		sink:          opts.Sink,
		now:           opts.Now,
		submitTimeout: opts.SubmitTimeout,
		log: opts.Log.With().
			Str("exam_id", exam.ID.String()).
			Int("student_id", student.ID).
			Logger(),
		status:    model.SessionStatusInProgress,
		answers:   make(map[int]model.Answer),
		flagged:   make(map[int]bool),
		remaining: remaining,
		startedAt: opts.StartedAt,
	}
	return s, nil
}

// Start arms the exam countdown. Calling it again has no effect.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil || s.status != model.SessionStatusInProgress {
		return
	}
	s.countdown = s.sched.Every(time.Second, s.Tick)
}

// ExamID returns the exam this session belongs to.
func (s *Session) ExamID() uuid.UUID { return s.examID }

// Student returns the identity the session was started for.
func (s *Session) Student() model.StudentIdentity { return s.student }

// QuestionCount returns the size of the randomized question set.
func (s *Session) QuestionCount() int { return len(s.questions) }

// Question returns the randomized question at pos.
func (s *Session) Question(pos int) (model.Question, bool) {
	if pos < 0 || pos >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[pos], true
}

// Questions returns a copy of the randomized question set, answer keys included.
func (s *Session) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Status returns the current lifecycle state.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ViolationCount returns the number of recorded focus-loss violations.
func (s *Session) ViolationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

// RemainingSeconds returns the working time left.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Frozen reports whether a freeze penalty is running, and how long it has left.
func (s *Session) Frozen() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen, s.freezeRemaining
}

// interactLocked checks that the student may touch the question at pos.
func (s *Session) interactLocked(pos int) (model.Question, error) {
	if s.status != model.SessionStatusInProgress {
		return model.Question{}, ErrSessionClosed
	}
	if s.frozen {
		return model.Question{}, ErrSessionFrozen
	}
	q, ok := s.Question(pos)
	if !ok {
		return model.Question{}, ErrInvalidPosition
	}
	return q, nil
}

// RecordSingleChoice stores optionIndex as the answer at pos.
func (s *Session) RecordSingleChoice(pos, optionIndex int) (model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.interactLocked(pos)
	if err != nil {
		return nil, err
	}
	if q.Type != model.QuestionTypeSingleChoice {
		return nil, ErrAnswerKind
	}
	a := model.SingleIndex(optionIndex)
	s.answers[pos] = a
	return a, nil
}

// RecordMultiChoice toggles optionIndex in the set answer at pos. Removing the
// last index leaves the question unanswered and returns a nil Answer.
func (s *Session) RecordMultiChoice(pos, optionIndex int) (model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.interactLocked(pos)
	if err != nil {
		return nil, err
	}
	if q.Type != model.QuestionTypeMultiChoice {
		return nil, ErrAnswerKind
	}
	current, _ := s.answers[pos].(model.IndexSet)
	next := current.Toggle(optionIndex)
	if len(next) == 0 {
		delete(s.answers, pos)
		return nil, nil
	}
	s.answers[pos] = next
	return next, nil
}

// RecordEssay overwrites the essay text at pos. Empty text clears the answer.
func (s *Session) RecordEssay(pos int, text string) (model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.interactLocked(pos)
	if err != nil {
		return nil, err
	}
	if q.Type != model.QuestionTypeEssay {
		return nil, ErrAnswerKind
	}
	if text == "" {
		delete(s.answers, pos)
		return nil, nil
	}
	a := model.Text(text)
	s.answers[pos] = a
	return a, nil
}

// ToggleFlag flips the "in doubt" marker at pos and returns the new value.
func (s *Session) ToggleFlag(pos int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.interactLocked(pos); err != nil {
		return false, err
	}
	if s.flagged[pos] {
		delete(s.flagged, pos)
		return false, nil
	}
	s.flagged[pos] = true
	return true, nil
}

// GoTo moves the current position, clamped to the question list.
func (s *Session) GoTo(pos int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != model.SessionStatusInProgress {
		return s.position, ErrSessionClosed
	}
	if s.frozen {
		return s.position, ErrSessionFrozen
	}
	switch {
	case pos < 0:
		pos = 0
	case pos > len(s.questions)-1:
		pos = len(s.questions) - 1
	}
	s.position = pos
	return pos, nil
}

// Tick advances the exam countdown by one second. When it reaches zero the
// session is submitted, even if a freeze is running.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.status != model.SessionStatusInProgress {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	expired := s.remaining == 0
	evt := s.eventLocked(EventTick)
	s.mu.Unlock()

	s.emit(evt)
	if expired {
		s.forceSubmit()
	}
}

func (s *Session) stopTimersLocked() {
	if s.countdown != nil {
		s.countdown.Cancel()
		s.countdown = nil
	}
	if s.freezeTask != nil {
		s.freezeTask.Cancel()
		s.freezeTask = nil
	}
	s.frozen = false
	s.freezeRemaining = 0
}

func (s *Session) eventLocked(t EventType) Event {
	return Event{
		Type:                   t,
		ExamID:                 s.examID.String(),
		StudentID:              s.student.ID,
		RemainingSeconds:       s.remaining,
		FreezeRemainingSeconds: s.freezeRemaining,
		ViolationCount:         s.violations,
		At:                     s.now(),
	}
}

func (s *Session) emit(events ...Event) {
	if s.sink == nil {
		return
	}
	for _, e := range events {
		s.sink(e)
	}
}

// Snapshot is the read-only view of a session rendered by the client.
type Snapshot struct {
	ExamID                 uuid.UUID                  `json:"exam_id"`
	ExamTitle              string                     `json:"exam_title"`
	StudentID              int                        `json:"student_id"`
	Status                 model.SessionStatus        `json:"status"`
	Position               int                        `json:"position"`
	RemainingSeconds       int                        `json:"remaining_seconds"`
	Frozen                 bool                       `json:"frozen"`
	FreezeRemainingSeconds int                        `json:"freeze_remaining_seconds"`
	ViolationCount         int                        `json:"violation_count"`
	Questions              []model.QuestionForStudent `json:"questions"`
	Answers                map[int]model.Answer       `json:"-"`
	EncodedAnswers         map[int]json.RawMessage    `json:"answers"`
	Flagged                []int                      `json:"flagged"`
	Result                 *model.ExamResult          `json:"result,omitempty"`
	LastError              string                     `json:"last_error,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ExamID:                 s.examID,
		ExamTitle:              s.examTitle,
		StudentID:              s.student.ID,
		Status:                 s.status,
		Position:               s.position,
		RemainingSeconds:       s.remaining,
		Frozen:                 s.frozen,
		FreezeRemainingSeconds: s.freezeRemaining,
		ViolationCount:         s.violations,
		Questions:              make([]model.QuestionForStudent, len(s.questions)),
		Answers:                make(map[int]model.Answer, len(s.answers)),
		EncodedAnswers:         make(map[int]json.RawMessage, len(s.answers)),
		Flagged:                make([]int, 0, len(s.flagged)),
		Result:                 s.result,
	}
	for i, q := range s.questions {
		snap.Questions[i] = model.QuestionForStudent{
			Position: i,
			ID:       q.ID,
			Type:     q.Type,
			Text:     q.Text,
			ImageURL: q.ImageURL,
			Options:  q.Options,
			Points:   q.Points,
		}
	}
	for pos, a := range s.answers {
		snap.Answers[pos] = a
		if raw, err := model.EncodeAnswer(a); err == nil {
			snap.EncodedAnswers[pos] = raw
		}
	}
	for pos := range s.flagged {
		snap.Flagged = append(snap.Flagged, pos)
	}
	sort.Ints(snap.Flagged)
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
