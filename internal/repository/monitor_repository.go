package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository provides the persisted side of the live exam monitor.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetInProgressStudentIDs returns all student IDs with an active session for the given exam.
func (r *MonitorRepository) GetInProgressStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM exam_sessions WHERE exam_id = $1 AND status = 'IN_PROGRESS' ORDER BY student_id`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// GetAnsweredCounts returns the number of autosaved, non-cleared answers per student.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	return r.countByStudent(ctx,
		`SELECT student_id, COUNT(*)
		 FROM student_answers
		 WHERE exam_id = $1 AND answer IS NOT NULL
		 GROUP BY student_id`,
		examID,
	)
}

// GetCheatCounts returns the number of focus-loss violations recorded per student.
func (r *MonitorRepository) GetCheatCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	return r.countByStudent(ctx,
		`SELECT student_id, COUNT(*)
		 FROM exam_cheats
		 WHERE exam_id = $1
		 GROUP BY student_id`,
		examID,
	)
}

func (r *MonitorRepository) countByStudent(ctx context.Context, sql string, examID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx, sql, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var sid int
		var count int64
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}
	return counts, rows.Err()
}
