package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type monitorStore interface {
	GetInProgressStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error)
	GetAnsweredCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error)
	GetCheatCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error)
}

type liveSource interface {
	LiveStudents(examID uuid.UUID) []LiveStudent
}

// MonitorService orchestrates live exam monitoring business logic.
type MonitorService struct {
	monitorRepo monitorStore
	live        liveSource
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo monitorStore, live liveSource) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo, live: live}
}

// MonitorSnapshot is the initial state a proctor sees before the event stream starts.
type MonitorSnapshot struct {
	// Live holds the sessions running on this server, with exact clocks.
	Live []LiveStudent `json:"live"`
	// InProgress lists every student with an open attempt row, on any server.
	InProgress     []int         `json:"in_progress"`
	AnsweredCounts map[int]int64 `json:"answered_counts"`
	CheatCounts    map[int]int64 `json:"cheat_counts"`
	TotalCheats    int64         `json:"total_cheats"`
}

// GetSnapshot fires the independent data fetches in parallel to minimize latency.
func (s *MonitorService) GetSnapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	snapshot := &MonitorSnapshot{
		Live:           s.live.LiveStudents(examID),
		InProgress:     []int{},
		AnsweredCounts: make(map[int]int64),
		CheatCounts:    make(map[int]int64),
	}

	var (
		inProgress     []int
		answeredCounts map[int]int64
		cheatCounts    map[int]int64
		inProgressErr  error
		answeredErr    error
		cheatErr       error
		wg             sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		inProgress, inProgressErr = s.monitorRepo.GetInProgressStudentIDs(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		answeredCounts, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		cheatCounts, cheatErr = s.monitorRepo.GetCheatCounts(ctx, examID)
	}()
	wg.Wait()

	// The session list is critical; the counts are best-effort
	if inProgressErr != nil {
		return nil, inProgressErr
	}
	if inProgress != nil {
		snapshot.InProgress = inProgress
	}
	if answeredErr == nil && answeredCounts != nil {
		snapshot.AnsweredCounts = answeredCounts
	}
	if cheatErr == nil && cheatCounts != nil {
		snapshot.CheatCounts = cheatCounts
		for _, count := range cheatCounts {
			snapshot.TotalCheats += count
		}
	}

	return snapshot, nil
}
