package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
)

var ErrResultNotFound = errors.New("result not found")

type resultStore interface {
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ExamResult, int, error)
}

// ResultService reads persisted exam results.
type ResultService struct {
	resultRepo resultStore
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo resultStore) *ResultService {
	return &ResultService{resultRepo: resultRepo}
}

// Get returns one student's stored result.
func (s *ResultService) Get(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamResult, error) {
	res, err := s.resultRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByExam returns a page of results ordered by student name.
func (s *ResultService) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamResult, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	results, total, err := s.resultRepo.ListByExam(ctx, examID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if results == nil {
		results = []model.ExamResult{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return results, pagination, nil
}
