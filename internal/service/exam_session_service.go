package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/engine"
	"github.com/stemsi/exstem-cbt/internal/metrics"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/queue"
)

// Exam session errors.
var (
	ErrExamNotAvailable  = errors.New("exam is not available for joining")
	ErrInvalidEntryToken = errors.New("invalid entry token")
	ErrNameMismatch      = errors.New("confirmed name does not match the logged-in student")
	ErrExamOutOfWindow   = errors.New("exam is outside its scheduled window")
	ErrExamCompleted     = errors.New("exam session is already completed")
	ErrExamNotJoined     = errors.New("student has not joined this exam")
	ErrInvalidOption     = errors.New("option index out of range")
	ErrMissingAnswer     = errors.New("answer payload does not match question type")
)

const publishTimeout = 2 * time.Second

type examLoader interface {
	LoadExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

type antiCheatSource interface {
	AntiCheatConfig(ctx context.Context) model.AntiCheatConfig
}

type sessionStore interface {
	GetOrCreate(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error)
}

// sessionQueue is what the service pushes to Redis. *queue.Producer implements it.
type sessionQueue interface {
	engine.ResultWriter
	EnqueueAnswer(ctx context.Context, a queue.AnswerPayload) error
	EnqueueViolation(ctx context.Context, v queue.ViolationPayload) error
	EnqueueQuestionOrder(ctx context.Context, o queue.QuestionOrderPayload) error
	PublishMonitor(ctx context.Context, examID string, v any) error
}

// SessionOptions tunes the sessions created by ExamSessionService.
type SessionOptions struct {
	SubmitTimeout time.Duration
	// Scheduler drives the countdowns. Nil uses wall-clock tickers.
	Scheduler engine.Scheduler
	Now       func() time.Time
}

type sessionKey struct {
	examID    uuid.UUID
	studentID int
}

// ExamSessionService owns the live exam sessions of this server. Each
// (exam, student) pair has at most one session; its events are fanned out to
// the student's connections, the proctor channel and the persistence queues.
type ExamSessionService struct {
	exams       examLoader
	settings    antiCheatSource
	sessionRepo sessionStore
	queue       sessionQueue
	opts        SessionOptions
	log         zerolog.Logger

	mu   sync.Mutex
	live map[sessionKey]*liveSession
	done map[sessionKey]*model.ExamResult
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	exams examLoader,
	settings antiCheatSource,
	sessionRepo sessionStore,
	q sessionQueue,
	opts SessionOptions,
	log zerolog.Logger,
) *ExamSessionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ExamSessionService{
		exams:       exams,
		settings:    settings,
		sessionRepo: sessionRepo,
		queue:       q,
		opts:        opts,
		log:         log.With().Str("component", "exam_session_service").Logger(),
		live:        make(map[sessionKey]*liveSession),
		done:        make(map[sessionKey]*model.ExamResult),
	}
}

// JoinExam checks the student's identity confirmation and the exam's access
// rules, then returns the student's running session, starting one if needed.
// The working time of a new session is derived from the stored attempt row,
// so leaving and rejoining never resets the clock.
func (s *ExamSessionService) JoinExam(ctx context.Context, examID uuid.UUID, student model.StudentIdentity, req model.JoinExamRequest) (*engine.Session, error) {
	key := sessionKey{examID, student.ID}
	if sess, err := s.existing(key); sess != nil || err != nil {
		return sess, err
	}

	exam, err := s.exams.LoadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()
	if err := checkAccess(exam, student, req, now); err != nil {
		return nil, err
	}

	row, err := s.sessionRepo.GetOrCreate(ctx, examID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	if row.Status == model.SessionStatusCompleted {
		return nil, ErrExamCompleted
	}

	remaining := row.RemainingSeconds(exam.DurationSeconds(), now)
	ls := &liveSession{svc: s, key: key, studentName: student.Name, subs: make(map[int]chan engine.Event)}
	sess, err := engine.NewSession(exam, student, engine.Options{
		AntiCheat:        s.settings.AntiCheatConfig(ctx),
		Scheduler:        s.opts.Scheduler,
		Writer:           s.queue,
		Sink:             ls.dispatch,
		RemainingSeconds: &remaining,
		StartedAt:        row.StartedAt,
		SubmitTimeout:    s.opts.SubmitTimeout,
		Now:              s.opts.Now,
		Log:              s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	ls.session = sess

	s.mu.Lock()
	if other, ok := s.live[key]; ok {
		// A concurrent join won; ours was never started.
		s.mu.Unlock()
		return other.session, nil
	}
	s.live[key] = ls
	s.mu.Unlock()

	metrics.LiveSessions.Inc()
	s.enqueueQuestionOrder(ctx, sess)
	sess.Start()

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", student.ID).
		Int("remaining_seconds", remaining).
		Msg("Exam session started")
	return sess, nil
}

func (s *ExamSessionService) existing(key sessionKey) (*engine.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[key]; ok {
		return nil, ErrExamCompleted
	}
	if ls, ok := s.live[key]; ok {
		return ls.session, nil
	}
	return nil, nil
}

func checkAccess(exam *model.Exam, student model.StudentIdentity, req model.JoinExamRequest, now time.Time) error {
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotAvailable
	}
	if exam.EntryToken != strings.TrimSpace(req.EntryToken) {
		return ErrInvalidEntryToken
	}
	if !strings.EqualFold(strings.TrimSpace(req.ConfirmName), strings.TrimSpace(student.Name)) {
		return ErrNameMismatch
	}
	if !exam.InWindow(now) {
		return ErrExamOutOfWindow
	}
	if !exam.AllowsSchool(student.School) {
		return ErrExamNotAvailable
	}
	return nil
}

func (s *ExamSessionService) enqueueQuestionOrder(ctx context.Context, sess *engine.Session) {
	questions := sess.Questions()
	order := make([]queue.QuestionOrderEntry, len(questions))
	for i, q := range questions {
		order[i] = queue.QuestionOrderEntry{QuestionID: q.ID.String(), OptionOrder: q.OptionOrder}
	}
	err := s.queue.EnqueueQuestionOrder(ctx, queue.QuestionOrderPayload{
		StudentID: sess.Student().ID,
		ExamID:    sess.ExamID().String(),
		Order:     order,
	})
	if err != nil {
		s.log.Error().Err(err).Str("exam_id", sess.ExamID().String()).Msg("Failed to enqueue question order")
	}
}

// Session returns the running session of a student.
func (s *ExamSessionService) Session(examID uuid.UUID, studentID int) (*engine.Session, error) {
	key := sessionKey{examID, studentID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[key]; ok {
		return ls.session, nil
	}
	if _, ok := s.done[key]; ok {
		return nil, ErrExamCompleted
	}
	return nil, ErrExamNotJoined
}

// Answer records a choice or essay answer at pos and queues it for autosave.
// For MULTI_CHOICE the option is toggled. A nil Answer means the question is
// now unanswered.
func (s *ExamSessionService) Answer(ctx context.Context, examID uuid.UUID, studentID, pos int, optionIndex *int, text *string) (model.Answer, error) {
	sess, err := s.Session(examID, studentID)
	if err != nil {
		return nil, err
	}
	q, ok := sess.Question(pos)
	if !ok {
		return nil, engine.ErrInvalidPosition
	}

	var answer model.Answer
	switch q.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultiChoice:
		if optionIndex == nil {
			return nil, ErrMissingAnswer
		}
		if *optionIndex < 0 || *optionIndex >= len(q.Options) {
			return nil, ErrInvalidOption
		}
		if q.Type == model.QuestionTypeSingleChoice {
			answer, err = sess.RecordSingleChoice(pos, *optionIndex)
		} else {
			answer, err = sess.RecordMultiChoice(pos, *optionIndex)
		}
	case model.QuestionTypeEssay:
		if text == nil {
			return nil, ErrMissingAnswer
		}
		answer, err = sess.RecordEssay(pos, *text)
	default:
		return nil, ErrMissingAnswer
	}
	if err != nil {
		return nil, err
	}

	payload := queue.AnswerPayload{
		StudentID:  studentID,
		ExamID:     examID.String(),
		QuestionID: q.ID.String(),
		Timestamp:  s.opts.Now().Unix(),
	}
	if answer != nil {
		if payload.Answer, err = model.EncodeAnswer(answer); err != nil {
			return nil, err
		}
	}
	if err := s.queue.EnqueueAnswer(ctx, payload); err != nil {
		// The answer stays in the session and is part of the final result.
		s.log.Error().Err(err).Str("exam_id", examID.String()).Int("student_id", studentID).Msg("Failed to enqueue answer")
	}
	return answer, nil
}

// ToggleFlag flips the "in doubt" marker at pos.
func (s *ExamSessionService) ToggleFlag(examID uuid.UUID, studentID, pos int) (bool, error) {
	sess, err := s.Session(examID, studentID)
	if err != nil {
		return false, err
	}
	return sess.ToggleFlag(pos)
}

// GoTo moves the student's current position.
func (s *ExamSessionService) GoTo(examID uuid.UUID, studentID, pos int) (int, error) {
	sess, err := s.Session(examID, studentID)
	if err != nil {
		return 0, err
	}
	return sess.GoTo(pos)
}

// FocusLost reports a focus-loss signal. It returns whether a violation was recorded.
func (s *ExamSessionService) FocusLost(examID uuid.UUID, studentID int, signal engine.FocusSignal) (bool, error) {
	sess, err := s.Session(examID, studentID)
	if err != nil {
		return false, err
	}
	return sess.ReportFocusLoss(signal), nil
}

// Submit ends the student's session. Submitting a completed session returns
// the stored result.
func (s *ExamSessionService) Submit(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	key := sessionKey{examID, studentID}
	s.mu.Lock()
	if res, ok := s.done[key]; ok {
		s.mu.Unlock()
		return res, nil
	}
	ls, ok := s.live[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrExamNotJoined
	}
	return ls.session.Submit(ctx)
}

// Snapshot returns the rendered state of the student's session.
func (s *ExamSessionService) Snapshot(examID uuid.UUID, studentID int) (engine.Snapshot, error) {
	key := sessionKey{examID, studentID}
	s.mu.Lock()
	if res, ok := s.done[key]; ok {
		s.mu.Unlock()
		return engine.Snapshot{
			ExamID:         examID,
			ExamTitle:      res.ExamTitle,
			StudentID:      studentID,
			Status:         model.SessionStatusCompleted,
			ViolationCount: res.ViolationCount,
			Result:         res,
		}, nil
	}
	ls, ok := s.live[key]
	s.mu.Unlock()
	if !ok {
		return engine.Snapshot{}, ErrExamNotJoined
	}
	return ls.session.Snapshot(), nil
}

// Subscribe streams the session's events. The channel is closed once the
// session completes or cancel is called.
func (s *ExamSessionService) Subscribe(examID uuid.UUID, studentID int) (<-chan engine.Event, func(), error) {
	s.mu.Lock()
	ls, ok := s.live[sessionKey{examID, studentID}]
	s.mu.Unlock()
	if !ok {
		return nil, nil, ErrExamNotJoined
	}
	ch, cancel := ls.subscribe()
	if ch == nil {
		return nil, nil, ErrExamCompleted
	}
	return ch, cancel, nil
}

// LiveStudent is one row of the proctor's view of an exam.
type LiveStudent struct {
	StudentID              int                 `json:"student_id"`
	StudentName            string              `json:"student_name"`
	Status                 model.SessionStatus `json:"status"`
	RemainingSeconds       int                 `json:"remaining_seconds"`
	Frozen                 bool                `json:"frozen"`
	FreezeRemainingSeconds int                 `json:"freeze_remaining_seconds"`
	ViolationCount         int                 `json:"violation_count"`
	AnsweredCount          int                 `json:"answered_count"`
}

// LiveStudents lists the sessions of examID held by this server.
func (s *ExamSessionService) LiveStudents(examID uuid.UUID) []LiveStudent {
	s.mu.Lock()
	sessions := make([]*liveSession, 0)
	for k, ls := range s.live {
		if k.examID == examID {
			sessions = append(sessions, ls)
		}
	}
	s.mu.Unlock()

	out := make([]LiveStudent, 0, len(sessions))
	for _, ls := range sessions {
		snap := ls.session.Snapshot()
		out = append(out, LiveStudent{
			StudentID:              snap.StudentID,
			StudentName:            ls.studentName,
			Status:                 snap.Status,
			RemainingSeconds:       snap.RemainingSeconds,
			Frozen:                 snap.Frozen,
			FreezeRemainingSeconds: snap.FreezeRemainingSeconds,
			ViolationCount:         snap.ViolationCount,
			AnsweredCount:          len(snap.Answers),
		})
	}
	return out
}

// complete moves a session from the live set to the completed set.
func (s *ExamSessionService) complete(key sessionKey, res *model.ExamResult) {
	s.mu.Lock()
	_, wasLive := s.live[key]
	delete(s.live, key)
	s.done[key] = res
	s.mu.Unlock()
	if wasLive {
		metrics.LiveSessions.Dec()
	}
}

// MonitorEvent is the proctor channel's view of a session event.
type MonitorEvent struct {
	engine.Event
	StudentName string `json:"student_name"`
}

// liveSession fans one session's events out to its subscribers and to Redis.
type liveSession struct {
	svc         *ExamSessionService
	key         sessionKey
	studentName string
	session     *engine.Session

	mu     sync.Mutex
	subs   map[int]chan engine.Event
	nextID int
	closed bool
}

func (l *liveSession) subscribe() (<-chan engine.Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, nil
	}
	id := l.nextID
	l.nextID++
	ch := make(chan engine.Event, 64)
	l.subs[id] = ch
	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
}

func (l *liveSession) dispatch(e engine.Event) {
	l.broadcast(e)

	switch e.Type {
	case engine.EventTick, engine.EventFreezeTick:
		return
	case engine.EventViolation:
		l.recordViolation(e)
	case engine.EventCompleted:
		metrics.Submissions.WithLabelValues(submitTrigger(e.Result), "ok").Inc()
		l.svc.complete(l.key, e.Result)
		l.close()
	case engine.EventSubmitFailed:
		metrics.Submissions.WithLabelValues(submitTrigger(l.session.Result()), "failed").Inc()
	}
	l.publish(e)
}

func submitTrigger(res *model.ExamResult) string {
	if res != nil && res.ForcedByTimeout {
		return "timeout"
	}
	return "student"
}

func (l *liveSession) broadcast(e engine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
			// Slow reader; it can resync with a state request.
		}
	}
}

func (l *liveSession) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}

func (l *liveSession) recordViolation(e engine.Event) {
	metrics.Violations.WithLabelValues(string(e.Signal)).Inc()
	metrics.FreezeSeconds.Add(float64(e.PenaltySeconds))

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := l.svc.queue.EnqueueViolation(ctx, queue.ViolationPayload{
		StudentID:       e.StudentID,
		ExamID:          e.ExamID,
		Signal:          string(e.Signal),
		ViolationNumber: e.ViolationCount,
		PenaltySeconds:  e.PenaltySeconds,
		Timestamp:       e.At.Unix(),
	})
	if err != nil {
		l.svc.log.Error().Err(err).Str("exam_id", e.ExamID).Int("student_id", e.StudentID).Msg("Failed to enqueue violation")
	}
}

func (l *liveSession) publish(e engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := l.svc.queue.PublishMonitor(ctx, e.ExamID, MonitorEvent{Event: e, StudentName: l.studentName}); err != nil {
		l.svc.log.Warn().Err(err).Str("exam_id", e.ExamID).Msg("Failed to publish monitor event")
	}
}
