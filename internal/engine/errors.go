package engine

import "errors"

var (
	ErrSessionClosed    = errors.New("exam session is no longer in progress")
	ErrSessionFrozen    = errors.New("exam session is frozen")
	ErrInvalidPosition  = errors.New("question position out of range")
	ErrAnswerKind       = errors.New("answer does not match question type")
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrSubmissionFailed = errors.New("result submission failed")
	ErrNoQuestions      = errors.New("exam has no questions")
)
