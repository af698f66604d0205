package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitorStore struct {
	ids      []int
	idsErr   error
	answered map[int]int64
	cheats   map[int]int64
	cheatErr error
}

func (f *fakeMonitorStore) GetInProgressStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	return f.ids, f.idsErr
}

func (f *fakeMonitorStore) GetAnsweredCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	return f.answered, nil
}

func (f *fakeMonitorStore) GetCheatCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	return f.cheats, f.cheatErr
}

type fakeLive []LiveStudent

func (f fakeLive) LiveStudents(examID uuid.UUID) []LiveStudent { return f }

func TestMonitorService_GetSnapshot(t *testing.T) {
	store := &fakeMonitorStore{
		ids:      []int{1, 2},
		answered: map[int]int64{1: 4, 2: 7},
		cheats:   map[int]int64{1: 2, 2: 1},
	}
	svc := NewMonitorService(store, fakeLive{{StudentID: 1, RemainingSeconds: 100}})

	snap, err := svc.GetSnapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, snap.InProgress)
	assert.Equal(t, int64(7), snap.AnsweredCounts[2])
	assert.Equal(t, int64(3), snap.TotalCheats)
	require.Len(t, snap.Live, 1)
	assert.Equal(t, 100, snap.Live[0].RemainingSeconds)
}

func TestMonitorService_CheatCountsBestEffort(t *testing.T) {
	store := &fakeMonitorStore{cheatErr: errors.New("timeout")}
	svc := NewMonitorService(store, fakeLive{})

	snap, err := svc.GetSnapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, snap.CheatCounts)
	assert.Equal(t, []int{}, snap.InProgress)

	store.idsErr = errors.New("db down")
	_, err = svc.GetSnapshot(context.Background(), uuid.New())
	assert.Error(t, err)
}
