package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-booking-saga/internal/config"
	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		Port:               "0",
		DailyDiscountQuota: 100,
		DiscountPercentage: 12.0,
		HighValueThreshold: 1000.0,
		Timezone:           time.UTC,
		TransactionTTL:     time.Hour,
	}
}

// harness wires the pipeline against in-memory fakes.
type harness struct {
	store *memStore
	log   *memLog
	quota *memQuota
	flag  *memFlag
	steps *Steps
	comp  *Compensator
	orch  *Orchestrator
	disp  *Dispatcher
}

func newHarness(cfg config.Config) *harness {
	h := &harness{
		store: newMemStore(),
		log:   newMemLog(),
		quota: &memQuota{},
		flag:  &memFlag{},
	}
	h.steps = NewSteps(h.store, h.log, h.quota, h.flag, nil, cfg)
	h.comp = NewCompensator(h.store, h.log, h.quota)
	h.orch = NewOrchestrator(h.steps, h.comp, h.store, h.log)
	h.disp = NewDispatcher(h.steps, h.comp, h.store, h.log, h.log)
	return h
}

func birthdayToday() model.Date {
	now := time.Now().UTC()
	return model.NewDate(1992, now.Month(), now.Day())
}

func notBirthday() model.Date {
	now := time.Now().UTC().AddDate(0, 1, 0)
	return model.NewDate(1985, now.Month(), 15)
}

func eventTypes(state *model.TransactionState) []model.EventType {
	out := make([]model.EventType, len(state.Events))
	for i, e := range state.Events {
		out[i] = e.Type
	}
	return out
}

func TestOrchestratorBirthdayDiscountCompletes(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Anita Desai", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}

	// f7 (800) + f1 (500) = 1300 base.
	result, state := h.orch.Execute(context.Background(), user, []string{"f7", "f1"})

	require.True(t, result.Success)
	assert.Equal(t, model.StatusCompleted, state.Status)
	assert.Equal(t, 1300.0, result.BasePrice)
	assert.True(t, state.R1Eligible)
	assert.Equal(t, "Birthday discount (Female)", result.DiscountReason)
	assert.True(t, result.DiscountApplied)
	assert.Equal(t, 12.0, result.DiscountPercentage)
	assert.Equal(t, 1144.0, result.FinalPrice)
	assert.True(t, state.QuotaReserved)
	assert.Regexp(t, `^BK-\d{8}-[A-Z0-9]{4}$`, result.ReferenceID)
	assert.EqualValues(t, 1, h.quota.value())

	assert.Equal(t, []model.EventType{
		model.EventBookingInitiated,
		model.EventValidationStarted,
		model.EventValidationCompleted,
		model.EventPricingStarted,
		model.EventPricingCompleted,
		model.EventQuotaCheckStarted,
		model.EventQuotaReserved,
		model.EventBookingStarted,
		model.EventBookingCompleted,
	}, eventTypes(state))
}

func TestOrchestratorNotEligibleSkipsQuota(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Ravi Kumar", Gender: model.GenderMale, DateOfBirth: notBirthday()}

	// m4 (400) stays below the high-value threshold.
	result, state := h.orch.Execute(context.Background(), user, []string{"m4"})

	require.True(t, result.Success)
	assert.Equal(t, model.StatusCompleted, state.Status)
	assert.False(t, state.R1Eligible)
	assert.False(t, result.DiscountApplied)
	assert.Equal(t, 400.0, result.BasePrice)
	assert.Equal(t, 400.0, result.FinalPrice)
	assert.False(t, state.QuotaReserved)
	assert.EqualValues(t, 0, h.quota.value())

	for _, typ := range eventTypes(state) {
		assert.NotEqual(t, model.EventQuotaCheckStarted, typ)
		assert.NotEqual(t, model.EventQuotaReserved, typ)
	}
}

func TestOrchestratorQuotaExhaustedCompensates(t *testing.T) {
	cfg := testConfig()
	h := newHarness(cfg)
	h.quota.count = int64(cfg.DailyDiscountQuota) // cap already consumed
	user := model.User{Name: "Meera Nair", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}

	result, state := h.orch.Execute(context.Background(), user, []string{"f6"})

	require.False(t, result.Success)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.False(t, result.DiscountApplied)
	assert.Equal(t, 1500.0, result.FinalPrice, "no discount may leak on the exhausted path")
	assert.Equal(t, "Daily discount quota reached. Please try again tomorrow.", result.ErrorMessage)
	assert.False(t, state.QuotaReserved, "released by compensation")
	assert.EqualValues(t, cfg.DailyDiscountQuota, h.quota.value(), "counter restored after release")

	types := eventTypes(state)
	assert.Contains(t, types, model.EventQuotaReservedOverCap)
	assert.Contains(t, types, model.EventQuotaExhausted)
	assert.Equal(t, model.EventCompensationCompleted, types[len(types)-1])
}

func TestOrchestratorBookingFailureReleasesQuota(t *testing.T) {
	h := newHarness(testConfig())
	h.flag.enabled = true
	user := model.User{Name: "Suresh Raina", Gender: model.GenderMale, DateOfBirth: notBirthday()}

	// m5 (1500) exceeds the high-value threshold, so quota is reserved first.
	result, state := h.orch.Execute(context.Background(), user, []string{"m5"})

	require.False(t, result.Success)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.Empty(t, result.ReferenceID)
	assert.False(t, state.QuotaReserved)
	assert.EqualValues(t, 0, h.quota.value(), "reservation rolled back")

	types := eventTypes(state)
	assert.Contains(t, types, model.EventQuotaReserved)
	assert.Contains(t, types, model.EventBookingFailed)
	assert.Contains(t, types, model.EventCompensationStarted)
	assert.Equal(t, model.EventCompensationCompleted, types[len(types)-1])
}

func TestOrchestratorInvalidServiceNoSideEffects(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "Priya Patel", Gender: model.GenderFemale, DateOfBirth: notBirthday()}

	// m1 lives in the male partition and must not resolve for a female user.
	result, state := h.orch.Execute(context.Background(), user, []string{"f1", "m1"})

	require.False(t, result.Success)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.Equal(t, "service not found: m1", result.ErrorMessage)
	assert.Zero(t, result.BasePrice)
	assert.False(t, state.QuotaReserved)
	assert.EqualValues(t, 0, h.quota.value(), "validation failure must not touch the counter")

	types := eventTypes(state)
	assert.NotContains(t, types, model.EventPricingStarted)
	assert.Contains(t, types, model.EventValidationFailed)
}

func TestOrchestratorRejectsShortName(t *testing.T) {
	h := newHarness(testConfig())
	user := model.User{Name: "  a  ", Gender: model.GenderMale, DateOfBirth: notBirthday()}

	result, state := h.orch.Execute(context.Background(), user, []string{"m1"})

	require.False(t, result.Success)
	assert.Equal(t, model.StatusCompensated, state.Status)
	assert.Equal(t, "name must be at least 2 characters long", result.ErrorMessage)
}

// TestEventTrailFollowsStateMachine checks that every recorded trail is a
// valid walk of the status machine: compensation events only ever appear
// after a failure or quota-exhaustion event, and the trail is append-only.
func TestEventTrailFollowsStateMachine(t *testing.T) {
	runs := []struct {
		name  string
		setup func(h *harness)
		user  model.User
		ids   []string
	}{
		{"completed", func(*harness) {}, model.User{Name: "Asha Rao", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}, []string{"f1"}},
		{"exhausted", func(h *harness) { h.quota.count = 100 }, model.User{Name: "Asha Rao", Gender: model.GenderFemale, DateOfBirth: birthdayToday()}, []string{"f1"}},
		{"booking failed", func(h *harness) { h.flag.enabled = true }, model.User{Name: "Vikram Seth", Gender: model.GenderMale, DateOfBirth: notBirthday()}, []string{"m5"}},
		{"invalid", func(*harness) {}, model.User{Name: "Vikram Seth", Gender: model.GenderMale, DateOfBirth: notBirthday()}, []string{"zz"}},
	}
	for _, run := range runs {
		t.Run(run.name, func(t *testing.T) {
			h := newHarness(testConfig())
			run.setup(h)
			_, state := h.orch.Execute(context.Background(), run.user, run.ids)

			failureSeen := false
			for i, ev := range state.Events {
				if i > 0 {
					assert.False(t, ev.Timestamp.Before(state.Events[i-1].Timestamp), "timestamps must not regress")
				}
				switch ev.Type {
				case model.EventValidationFailed, model.EventQuotaExhausted, model.EventBookingFailed:
					failureSeen = true
				case model.EventCompensationStarted, model.EventCompensationCompleted:
					assert.True(t, failureSeen, "compensation before any failure event")
				}
			}
			assert.True(t, state.Status.Terminal(), "every transaction must end terminal")
		})
	}
}
