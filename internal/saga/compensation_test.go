package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

func TestCompensateReleasesReservedQuota(t *testing.T) {
	h := newHarness(testConfig())
	h.quota.count = 5
	state := model.NewTransactionState(model.User{Name: "Asha Rao", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}, []string{"f1"})
	state.Status = model.StatusFailed
	state.QuotaReserved = true
	state.QuotaKey = "quota:discount:2026-01-01"

	ok := h.comp.Compensate(context.Background(), state)

	assert.True(t, ok)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.False(t, state.QuotaReserved)
	assert.EqualValues(t, 4, h.quota.value())

	last := state.Events[len(state.Events)-1]
	assert.Equal(t, model.EventCompensationCompleted, last.Type)
	assert.Equal(t, "Compensation completed. Actions: Quota released", last.Message)
}

func TestCompensateNothingToUndo(t *testing.T) {
	h := newHarness(testConfig())
	state := model.NewTransactionState(model.User{Name: "Vikram Seth", Gender: model.GenderMale, DateOfBirth: notBirthday()}, []string{"zz"})
	state.Status = model.StatusFailed

	ok := h.comp.Compensate(context.Background(), state)

	assert.True(t, ok)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.EqualValues(t, 0, h.quota.value())

	last := state.Events[len(state.Events)-1]
	assert.Equal(t, "Compensation completed. Actions: None required", last.Message)
}

func TestCompensateSurvivesReleaseFailure(t *testing.T) {
	h := newHarness(testConfig())
	h.quota.count = 5
	h.quota.failRelease = true
	state := model.NewTransactionState(model.User{Name: "Asha Rao", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}, []string{"f1"})
	state.Status = model.StatusFailed
	state.QuotaReserved = true
	state.QuotaKey = "quota:discount:2026-01-01"

	ok := h.comp.Compensate(context.Background(), state)

	// The status still advances to terminal so the transaction does not hang,
	// but quota_reserved stays set to flag the leaked slot.
	assert.False(t, ok)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.True(t, state.QuotaReserved)
	assert.EqualValues(t, 5, h.quota.value())
}

func TestFailAndCompensateDefaultsMessage(t *testing.T) {
	h := newHarness(testConfig())
	state := model.NewTransactionState(model.User{Name: "Vikram Seth", Gender: model.GenderMale, DateOfBirth: notBirthday()}, []string{"m1"})

	h.comp.FailAndCompensate(context.Background(), state, "")

	assert.Equal(t, "Process failed", state.ErrorMessage)
	assert.Equal(t, model.StatusCompensated, state.Status)

	// The forced failure is durable: the stored record carries the terminal
	// status, not just the in-memory copy.
	stored, err := h.store.Get(context.Background(), state.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompensated, stored.Status)
}
