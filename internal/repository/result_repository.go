package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// ResultRepository stores submitted exam results. (exam_id, student_id) is
// unique, so replaying a submission never creates a second row.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// InsertBatch writes many results in one statement and returns the number of new rows.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []model.ExamResult) (int64, error) {
	n := len(results)
	examIDs := make([]uuid.UUID, n)
	studentIDs := make([]int, n)
	names := make([]string, n)
	titles := make([]string, n)
	scores := make([]int, n)
	maxScores := make([]int, n)
	totals := make([]int, n)
	answered := make([]int, n)
	violations := make([]int, n)
	forced := make([]bool, n)
	started := make([]time.Time, n)
	submitted := make([]time.Time, n)
	for i, res := range results {
		examIDs[i] = res.ExamID
		studentIDs[i] = res.StudentID
		names[i] = res.StudentName
		titles[i] = res.ExamTitle
		scores[i] = res.Score
		maxScores[i] = res.MaxScore
		totals[i] = res.TotalQuestions
		answered[i] = res.AnsweredCount
		violations[i] = res.ViolationCount
		forced[i] = res.ForcedByTimeout
		started[i] = res.StartedAt
		submitted[i] = res.SubmittedAt
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results (exam_id, student_id, student_name, exam_title, score, max_score,
		                           total_questions, answered_count, violation_count, forced_by_timeout,
		                           started_at, submitted_at)
		 SELECT * FROM UNNEST($1::uuid[], $2::int[], $3::text[], $4::text[], $5::int[], $6::int[],
		                      $7::int[], $8::int[], $9::int[], $10::bool[], $11::timestamptz[], $12::timestamptz[])
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		examIDs, studentIDs, names, titles, scores, maxScores,
		totals, answered, violations, forced, started, submitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Insert writes a single result. Returns false when the result was already stored.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ExamResult) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results (exam_id, student_id, student_name, exam_title, score, max_score,
		                           total_questions, answered_count, violation_count, forced_by_timeout,
		                           started_at, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		res.ExamID, res.StudentID, res.StudentName, res.ExamTitle, res.Score, res.MaxScore,
		res.TotalQuestions, res.AnsweredCount, res.ViolationCount, res.ForcedByTimeout,
		res.StartedAt, res.SubmittedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const resultColumns = `student_id, student_name, exam_id, exam_title, score, max_score, total_questions,
	answered_count, violation_count, started_at, submitted_at, forced_by_timeout`

func scanResult(row pgx.CollectableRow) (model.ExamResult, error) {
	var res model.ExamResult
	err := row.Scan(&res.StudentID, &res.StudentName, &res.ExamID, &res.ExamTitle, &res.Score, &res.MaxScore,
		&res.TotalQuestions, &res.AnsweredCount, &res.ViolationCount, &res.StartedAt, &res.SubmittedAt,
		&res.ForcedByTimeout)
	return res, err
}

// GetByExamAndStudent retrieves the stored result of one attempt.
func (r *ResultRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err != nil {
		return nil, err
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByExam returns one page of results ordered by student name, plus the total count.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ExamResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`, examID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE exam_id = $1
		 ORDER BY student_name ASC LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	results, err := pgx.CollectRows(rows, scanResult)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
