package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// GetByExamAndStudent retrieves a session for a specific exam-student combination.
func (r *ExamSessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, finished_at, status, final_score, violation_count
		 FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.FinishedAt, &s.Status, &s.FinalScore, &s.ViolationCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetOrCreate returns the attempt row, inserting it on first join. Concurrent
// joins converge on the same row.
func (r *ExamSessionRepository) GetOrCreate(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{ExamID: examID, StudentID: studentID, Status: model.SessionStatusInProgress}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		examID, studentID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByExamAndStudent(ctx, examID, studentID)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CompleteBatch marks many sessions COMPLETED in a single statement.
func (r *ExamSessionRepository) CompleteBatch(ctx context.Context, results []model.ExamResult) error {
	if len(results) == 0 {
		return nil
	}
	examIDs := make([]uuid.UUID, len(results))
	studentIDs := make([]int, len(results))
	scores := make([]int, len(results))
	violations := make([]int, len(results))
	finished := make([]time.Time, len(results))
	for i, res := range results {
		examIDs[i] = res.ExamID
		studentIDs[i] = res.StudentID
		scores[i] = res.Score
		violations[i] = res.ViolationCount
		finished[i] = res.SubmittedAt
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions es
		 SET status = $1, final_score = v.score, violation_count = v.violations, finished_at = v.finished_at
		 FROM UNNEST($2::uuid[], $3::int[], $4::int[], $5::int[], $6::timestamptz[])
		   AS v(exam_id, student_id, score, violations, finished_at)
		 WHERE es.exam_id = v.exam_id AND es.student_id = v.student_id`,
		model.SessionStatusCompleted, examIDs, studentIDs, scores, violations, finished)
	return err
}

// Complete marks one session as completed with its final score.
func (r *ExamSessionRepository) Complete(ctx context.Context, res *model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, final_score = $2, violation_count = $3, finished_at = $4
		 WHERE exam_id = $5 AND student_id = $6`,
		model.SessionStatusCompleted, res.Score, res.ViolationCount, res.SubmittedAt, res.ExamID, res.StudentID)
	return err
}

// SaveQuestionOrder stores the randomized question and option order of an attempt.
func (r *ExamSessionRepository) SaveQuestionOrder(ctx context.Context, examID uuid.UUID, studentID int, order []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET question_order = $1 WHERE exam_id = $2 AND student_id = $3`,
		order, examID, studentID)
	return err
}
