package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// submit mimics the submit-transaction surface: persist the initial record
// and append the created event, fire-and-forget.
func (h *harness) submit(t *testing.T, user model.User, serviceIDs []string) string {
	t.Helper()
	state := model.NewTransactionState(user, serviceIDs)
	state.AddEvent(model.EventBookingInitiated, "Booking request initiated for "+user.Name, nil)
	require.NoError(t, h.store.Save(context.Background(), state))
	_, err := h.log.Append(context.Background(), model.EventBookingInitiated, state.RequestID, nil)
	require.NoError(t, err)
	return state.RequestID
}

// pump drains the event log through the dispatcher until no new events are
// appended, simulating the tail loop synchronously.
func (h *harness) pump(t *testing.T) {
	t.Helper()
	for i := 0; ; i++ {
		h.log.mu.Lock()
		if i >= len(h.log.entries) {
			h.log.mu.Unlock()
			return
		}
		e := h.log.entries[i]
		h.log.mu.Unlock()
		h.disp.HandleEvent(context.Background(), e.EventType, e.RequestID)
	}
}

func TestDispatcherDrivesHappyPath(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Anita Desai", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}
	requestID := h.submit(t, user, []string{"f7", "f1"})

	h.pump(t)

	state, err := h.store.Get(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, state.Status)
	assert.Equal(t, 1144.0, state.FinalPrice)
	assert.True(t, state.DiscountApplied)
	assert.EqualValues(t, 1, h.quota.value())
}

func TestDispatcherSynthesizesSkipEvent(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Ravi Kumar", Gender: model.GenderMale, DateOfBirth: notBirthday()}
	requestID := h.submit(t, user, []string{"m4"})

	h.pump(t)

	state, err := h.store.Get(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, state.Status)
	assert.False(t, state.DiscountApplied)
	assert.EqualValues(t, 0, h.quota.value())

	// The skip shows up on the stream so booking is still triggered, but the
	// quota step itself never ran.
	assert.Contains(t, h.log.types(), model.EventQuotaReserved)
	assert.NotContains(t, h.log.types(), model.EventQuotaCheckStarted)
	assert.NotContains(t, eventTypes(state), model.EventQuotaReserved)
}

func TestDispatcherCompensatesQuotaExhaustion(t *testing.T) {
	h := newHarness(testConfig())
	h.quota.count = 100
	user := model.User{Name: "Meera Nair", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}
	requestID := h.submit(t, user, []string{"f6"})

	h.pump(t)

	state, err := h.store.Get(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.False(t, state.QuotaReserved)
	assert.EqualValues(t, 100, h.quota.value(), "over-cap reservation released")
}

func TestDispatcherIgnoresUnknownTransaction(t *testing.T) {
	h := newHarness(testConfig())
	// Must not panic or append anything for a record that never existed (or
	// already expired).
	h.disp.HandleEvent(context.Background(), model.EventBookingInitiated, "GHOST123")
	assert.Empty(t, h.log.types())
}

func TestDispatcherSurvivesStoreOutage(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Asha Rao", Gender: model.GenderFemale, DateOfBirth: notBirthday()}
	requestID := h.submit(t, user, []string{"f1"})

	// The store goes down after the record was loaded: the validation step
	// cannot persist, surfaces an unexpected failure, and the dispatcher runs
	// the failure path without panicking. Writes during the outage are lost,
	// so the last durable record is still the initial one and the quota
	// counter is untouched.
	h.store.failing = true
	h.disp.HandleEvent(context.Background(), model.EventBookingInitiated, requestID)
	h.store.failing = false

	state, err := h.store.Get(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitiated, state.Status)
	assert.EqualValues(t, 0, h.quota.value())
}
