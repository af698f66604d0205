package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

var ErrDuplicateNISN = errors.New("student with this NISN already exists")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, nisn, name, school, password_hash, created_at, updated_at`

func (r *StudentRepository) getOne(ctx context.Context, where string, arg any) (*model.Student, error) {
	rows, _ := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students WHERE `+where+` = $1`, arg)
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Student])
}

// GetByID retrieves a student by ID. A missing student yields pgx.ErrNoRows.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return r.getOne(ctx, "id", id)
}

// GetByNISN retrieves a student by their unique NISN.
func (r *StudentRepository) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	return r.getOne(ctx, "nisn", strings.TrimSpace(nisn))
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	s.NISN = strings.TrimSpace(s.NISN)
	s.School = strings.TrimSpace(s.School)

	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (nisn, name, school, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		s.NISN, s.Name, s.School, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateNISN
	}
	return err
}
