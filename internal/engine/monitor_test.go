package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-cbt/internal/model"
)

func TestPenaltySeconds(t *testing.T) {
	tests := []struct {
		name       string
		base       int
		violations int
		max        int
		want       int
	}{
		{"first", 15, 0, 0, 15},
		{"second", 15, 1, 0, 30},
		{"third", 15, 2, 0, 60},
		{"fourth", 15, 3, 0, 120},
		{"capped", 15, 3, 100, 100},
		{"cap above value", 15, 1, 100, 30},
		{"zero base", 0, 4, 0, 0},
		{"saturates", 15, 200, 0, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PenaltySeconds(tt.base, tt.violations, tt.max))
		})
	}
}

func TestReportFocusLoss_BackoffSequence(t *testing.T) {
	h := newHarness(t, 3600, activeAntiCheat(15))

	for i, want := range []int{15, 30, 60, 120} {
		require.True(t, h.session.ReportFocusLoss(FocusTabHidden))
		frozen, left := h.session.Frozen()
		require.True(t, frozen)
		assert.Equal(t, want, left, "violation %d", i+1)

		// another signal during the same freeze is ignored
		assert.False(t, h.session.ReportFocusLoss(FocusWindowBlur))

		h.sched.Advance(time.Duration(want) * time.Second)
		frozen, _ = h.session.Frozen()
		require.False(t, frozen)
	}
	assert.Equal(t, 4, h.session.ViolationCount())
}

func TestReportFocusLoss_EventOrder(t *testing.T) {
	cfg := activeAntiCheat(2)
	cfg.EnableSound = true
	h := newHarness(t, 3600, cfg)

	h.session.ReportFocusLoss(FocusWindowBlur)
	h.sched.Advance(2 * time.Second)

	events := h.eventsExceptTicks()
	require.Len(t, events, 4)
	assert.Equal(t, EventViolation, events[0].Type)
	assert.Equal(t, FocusWindowBlur, events[0].Signal)
	assert.Equal(t, cfg.AlertText, events[0].AlertText)
	assert.True(t, events[0].PlaySound)
	assert.Equal(t, 1, events[0].ViolationCount)
	assert.Equal(t, EventFrozen, events[1].Type)
	assert.Equal(t, 2, events[1].FreezeRemainingSeconds)
	assert.Equal(t, EventFreezeTick, events[2].Type)
	assert.Equal(t, 1, events[2].FreezeRemainingSeconds)
	assert.Equal(t, EventUnfrozen, events[3].Type)
}

func TestReportFocusLoss_Inactive(t *testing.T) {
	h := newHarness(t, 3600, model.DisabledAntiCheat())

	assert.False(t, h.session.ReportFocusLoss(FocusTabHidden))
	assert.Equal(t, 0, h.session.ViolationCount())
	assert.Empty(t, h.eventsExceptTicks())
}

func TestReportFocusLoss_ZeroPenaltyCountsWithoutFreeze(t *testing.T) {
	h := newHarness(t, 3600, activeAntiCheat(0))

	assert.True(t, h.session.ReportFocusLoss(FocusTabHidden))
	frozen, _ := h.session.Frozen()
	assert.False(t, frozen)
	assert.Equal(t, 1, h.session.ViolationCount())

	_, err := h.session.RecordSingleChoice(h.position(model.QuestionTypeSingleChoice), 0)
	assert.NoError(t, err)
}

func TestReportFocusLoss_BlocksInteraction(t *testing.T) {
	h := newHarness(t, 3600, activeAntiCheat(5))
	pos := h.position(model.QuestionTypeSingleChoice)

	h.session.ReportFocusLoss(FocusTabHidden)

	_, err := h.session.RecordSingleChoice(pos, 0)
	assert.ErrorIs(t, err, ErrSessionFrozen)
	_, err = h.session.ToggleFlag(pos)
	assert.ErrorIs(t, err, ErrSessionFrozen)
	_, err = h.session.GoTo(1)
	assert.ErrorIs(t, err, ErrSessionFrozen)

	// the exam clock keeps running during a freeze
	h.sched.Advance(5 * time.Second)
	assert.Equal(t, 3595, h.session.RemainingSeconds())

	_, err = h.session.RecordSingleChoice(pos, 0)
	assert.NoError(t, err)
}

func TestReportFocusLoss_AfterSubmitIgnored(t *testing.T) {
	h := newHarness(t, 3600, activeAntiCheat(5))
	_, err := h.session.Submit(t.Context())
	require.NoError(t, err)

	assert.False(t, h.session.ReportFocusLoss(FocusTabHidden))
	assert.Equal(t, 0, h.session.ViolationCount())
}
