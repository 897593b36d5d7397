package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/scheduling-engine/internal/schedule"
)

// fakeStore is an in-memory ScheduleSource for engine tests.
type fakeStore struct {
	providers map[uuid.UUID]*schedule.Provider
	shifts    map[uuid.UUID][]schedule.Shift
	timeOff   map[uuid.UUID][]schedule.TimeOff
	holidays  map[string]*schedule.Holiday
	overrides map[uuid.UUID]map[string]bool
	bookings  map[uuid.UUID][]schedule.Booking
	failWith  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		providers: map[uuid.UUID]*schedule.Provider{},
		shifts:    map[uuid.UUID][]schedule.Shift{},
		timeOff:   map[uuid.UUID][]schedule.TimeOff{},
		holidays:  map[string]*schedule.Holiday{},
		overrides: map[uuid.UUID]map[string]bool{},
		bookings:  map[uuid.UUID][]schedule.Booking{},
	}
}

func (f *fakeStore) GetProvider(_ context.Context, id uuid.UUID) (*schedule.Provider, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.providers[id]
	if !ok {
		return nil, schedule.ErrProviderNotFound
	}
	return p, nil
}

func (f *fakeStore) GetShifts(_ context.Context, id uuid.UUID, weekday time.Weekday) ([]schedule.Shift, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []schedule.Shift
	for _, s := range f.shifts[id] {
		if s.Weekday == weekday {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTimeOff(_ context.Context, id uuid.UUID, _ time.Time) ([]schedule.TimeOff, error) {
	return f.timeOff[id], nil
}

func (f *fakeStore) GetHoliday(_ context.Context, date time.Time) (*schedule.Holiday, error) {
	return f.holidays[date.Format(time.DateOnly)], nil
}

func (f *fakeStore) HasHolidayOverride(_ context.Context, id uuid.UUID, date time.Time) (bool, error) {
	return f.overrides[id][date.Format(time.DateOnly)], nil
}

func (f *fakeStore) GetBookings(_ context.Context, id uuid.UUID, _ time.Time) ([]schedule.Booking, error) {
	return f.bookings[id], nil
}

// fixedClock pins "now" for deterministic same-day behavior.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// tuesday is a fixed reference date well in the future of the pinned
// clock, so same-day filtering stays out of the way unless a test
// opts in.
var tuesday = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // a Tuesday

func newTestEngine(store *fakeStore) *Engine {
	e := NewEngine(store, nil, nil)
	return e.WithClock(fixedClock{now: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)})
}

func seedProvider(store *fakeStore) uuid.UUID {
	id := uuid.New()
	store.providers[id] = &schedule.Provider{ID: id, Name: "Dana", Active: true, Bookable: true}
	store.shifts[id] = []schedule.Shift{{ProviderID: id, Weekday: time.Tuesday, Start: "10:00", End: "21:00"}}
	return id
}

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func TestGetAvailableSlots_FullOpenDay(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)

	// 10:00 through 20:00 inclusive: the 20:00 slot ends exactly at the
	// 21:00 shift boundary.
	require.Len(t, slots, 21)
	assert.Equal(t, "10:00", slots[0].Start)
	assert.Equal(t, "10:30", slots[1].Start)
	assert.Equal(t, "20:00", slots[20].Start)
}

func TestGetAvailableSlots_BookingBlocksOverlappingStarts(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	store.bookings[id] = []schedule.Booking{{
		ID: uuid.New(), ProviderID: id,
		StartAt:         time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          schedule.StatusConfirmed,
	}}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)

	got := starts(slots)
	assert.Contains(t, got, "13:00")
	assert.Contains(t, got, "15:00")
	assert.NotContains(t, got, "13:30")
	assert.NotContains(t, got, "14:00")
	assert.NotContains(t, got, "14:30")
}

func TestGetAvailableSlots_CancelledBookingNeverBlocks(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	store.bookings[id] = []schedule.Booking{{
		ID: uuid.New(), ProviderID: id,
		StartAt:         time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          schedule.StatusCancelled,
	}}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Contains(t, starts(slots), "14:00")
}

func TestGetAvailableSlots_NoShiftWeekday(t *testing.T) {
	store := newFakeStore()
	id := seedProviderMondayOnly(store)
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func seedProviderMondayOnly(store *fakeStore) uuid.UUID {
	id := uuid.New()
	store.providers[id] = &schedule.Provider{ID: id, Name: "Mo", Active: true, Bookable: true}
	store.shifts[id] = []schedule.Shift{{ProviderID: id, Weekday: time.Monday, Start: "09:00", End: "17:00"}}
	return id
}

func TestGetAvailableSlots_Holiday(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	store.holidays["2026-09-01"] = &schedule.Holiday{Date: tuesday, Name: "Founders Day"}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)

	// A holiday override restores the provider's day.
	store.overrides[id] = map[string]bool{"2026-09-01": true}
	slots, err = engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Len(t, slots, 21)
}

func TestGetAvailableSlots_TimeOff(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)

	// Afternoon off: 13:00–17:00.
	store.timeOff[id] = []schedule.TimeOff{{
		ProviderID: id,
		StartsAt:   time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC),
		Reason:     "training",
	}}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	got := starts(slots)
	assert.Contains(t, got, "12:00") // ends exactly as time off begins
	assert.NotContains(t, got, "12:30")
	assert.NotContains(t, got, "16:30")
	assert.Contains(t, got, "17:00")
}

func TestGetAvailableSlots_TimeOffCoversShift(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	store.timeOff[id] = []schedule.TimeOff{{
		ProviderID: id,
		StartsAt:   time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Reason:     "vacation",
	}}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_SameDayDropsPastStarts(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	engine := NewEngine(store, nil, nil).
		WithClock(fixedClock{now: time.Date(2026, 9, 1, 14, 10, 0, 0, time.UTC)})

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "14:30", slots[0].Start)
}

func TestGetAvailableSlots_InvalidDuration(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	engine := newTestEngine(store)

	_, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 0, 30)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.GetAvailableSlots(context.Background(), id, tuesday, -15, 30)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetAvailableSlots_UnknownProvider(t *testing.T) {
	engine := newTestEngine(newFakeStore())

	_, err := engine.GetAvailableSlots(context.Background(), uuid.New(), tuesday, 60, 30)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestGetAvailableSlots_IneligibleProviderIsEmptyNotError(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.providers[id] = &schedule.Provider{ID: id, Name: "Retired", Active: false, Bookable: true}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 60, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_StoreFailureIsNeverEmptySuccess(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), uuid.New(), tuesday, 60, 30)
	assert.ErrorIs(t, err, ErrDataSource)
	assert.Nil(t, slots)
}

func TestGetAvailableSlots_DeterministicAndStrictlyIncreasing(t *testing.T) {
	store := newFakeStore()
	id := seedProvider(store)
	store.bookings[id] = []schedule.Booking{{
		ID: uuid.New(), ProviderID: id,
		StartAt:         time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
		DurationMinutes: 90,
		Status:          schedule.StatusPending,
	}}
	engine := newTestEngine(store)

	first, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 45, 15)
	require.NoError(t, err)
	second, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 45, 15)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Start < first[i].Start,
			"slots must be strictly increasing: %s then %s", first[i-1].Start, first[i].Start)
	}
}

func TestGetAvailableSlots_SlotNeverSpansTwoShifts(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.providers[id] = &schedule.Provider{ID: id, Name: "Split", Active: true, Bookable: true}
	store.shifts[id] = []schedule.Shift{
		{ProviderID: id, Weekday: time.Tuesday, Start: "09:00", End: "12:00"},
		{ProviderID: id, Weekday: time.Tuesday, Start: "12:00", End: "15:00"},
	}
	engine := newTestEngine(store)

	slots, err := engine.GetAvailableSlots(context.Background(), id, tuesday, 90, 30)
	require.NoError(t, err)
	got := starts(slots)

	// 11:00 would end at 12:30, crossing the shift boundary even though
	// the shifts adjoin.
	assert.NotContains(t, got, "11:00")
	assert.Contains(t, got, "10:30") // ends exactly at 12:00
	assert.Contains(t, got, "12:00")
}

func TestSlotStartAt(t *testing.T) {
	s := Slot{Date: tuesday, Start: "14:30", DurationMinutes: 60}
	assert.Equal(t, time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC), s.StartAt())
}
