package events

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/internal/seats"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

type fakeEventRepo struct {
	events            map[int64]*Event
	getCalls          int
	listCalls         int
	lastPage          int
	lastLimit         int
	lastStatus        string
	listResult        []Event
	listTotal         int64
	upcoming          []Event
	lastUpcomingLimit int
}

func (f *fakeEventRepo) Create(ctx context.Context, event *Event) error {
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*Event, error) {
	f.getCalls++
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, ErrEventNotFound
}

func (f *fakeEventRepo) List(ctx context.Context, page, limit int, status string) ([]Event, int64, error) {
	f.listCalls++
	f.lastPage = page
	f.lastLimit = limit
	f.lastStatus = status
	return f.listResult, f.listTotal, nil
}

func (f *fakeEventRepo) GetUpcoming(ctx context.Context, limit int) ([]Event, error) {
	f.lastUpcomingLimit = limit
	return f.upcoming, nil
}

// fakeSeatRepo overrides only what the read path touches; the embedded
// interface panics on anything else.
type fakeSeatRepo struct {
	seats.Repository
	rows       []seats.Seat
	countCalls int
}

func (f *fakeSeatRepo) GetSeatsByEventID(ctx context.Context, eventID int64) ([]seats.Seat, error) {
	var out []seats.Seat
	for _, s := range f.rows {
		if s.EventID == eventID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeatRepo) GetAvailableSeatsByEvent(ctx context.Context, eventID int64) ([]seats.Seat, error) {
	var out []seats.Seat
	for _, s := range f.rows {
		if s.EventID == eventID && s.Status == seats.StatusAvailable {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeatRepo) CountSeatsByStatus(ctx context.Context, eventID int64) (map[seats.Status]int64, error) {
	f.countCalls++
	counts := make(map[seats.Status]int64)
	for _, s := range f.rows {
		if s.EventID == eventID {
			counts[s.Status]++
		}
	}
	return counts, nil
}

func setupEventService(t *testing.T) (*service, *fakeEventRepo, *fakeSeatRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &fakeEventRepo{events: map[int64]*Event{}}
	seatRepo := &fakeSeatRepo{}

	svc := &service{
		repo:         repo,
		seatRepo:     seatRepo,
		overlay:      seats.NewStatusMap(client),
		cacheService: cache.NewService(client),
		log:          logger.GetDefault(),
	}
	return svc, repo, seatRepo, mr
}

func TestMergeSeatStatus(t *testing.T) {
	tests := []struct {
		name    string
		stored  seats.Status
		overlay seats.Status
		want    seats.Status
	}{
		{"booked row ignores stale overlay", seats.StatusBooked, seats.StatusAvailable, seats.StatusBooked},
		{"overlay hold shows before the row catches up", seats.StatusAvailable, seats.StatusHeld, seats.StatusHeld},
		{"overlay release shows before the row catches up", seats.StatusHeld, seats.StatusAvailable, seats.StatusAvailable},
		{"overlay booking wins over held row", seats.StatusHeld, seats.StatusBooked, seats.StatusBooked},
		{"missing overlay entry keeps the row", seats.StatusAvailable, "", seats.StatusAvailable},
		{"garbage overlay value keeps the row", seats.StatusHeld, "SOLD", seats.StatusHeld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeSeatStatus(tt.stored, tt.overlay))
		})
	}
}

func TestGetEventSeats_MergesOverlay(t *testing.T) {
	svc, repo, seatRepo, _ := setupEventService(t)
	ctx := context.Background()

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night", Status: EventStatusPublished}
	seatRepo.rows = []seats.Seat{
		{ID: 101, EventID: 7, Status: seats.StatusAvailable},
		{ID: 102, EventID: 7, Status: seats.StatusAvailable},
		{ID: 103, EventID: 7, Status: seats.StatusBooked},
	}

	require.NoError(t, svc.overlay.SetStatuses(ctx, 7, []int64{101}, seats.StatusHeld))
	// A stale AVAILABLE entry must not resurrect a booked seat.
	require.NoError(t, svc.overlay.SetStatuses(ctx, 7, []int64{103}, seats.StatusAvailable))

	seatMap, err := svc.GetEventSeats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, seatMap, 3)

	byID := make(map[int64]seats.Status)
	for _, s := range seatMap {
		byID[s.ID] = s.Status
	}
	assert.Equal(t, seats.StatusHeld, byID[101])
	assert.Equal(t, seats.StatusAvailable, byID[102])
	assert.Equal(t, seats.StatusBooked, byID[103])
}

func TestGetEventSeats_UnknownEvent(t *testing.T) {
	svc, _, _, _ := setupEventService(t)

	_, err := svc.GetEventSeats(context.Background(), 404)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestGetEventSeats_OverlayDownFallsBackToRows(t *testing.T) {
	svc, repo, seatRepo, mr := setupEventService(t)

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night"}
	seatRepo.rows = []seats.Seat{
		{ID: 101, EventID: 7, Status: seats.StatusHeld},
		{ID: 102, EventID: 7, Status: seats.StatusAvailable},
	}
	mr.Close()

	seatMap, err := svc.GetEventSeats(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, seatMap, 2)
	assert.Equal(t, seats.StatusHeld, seatMap[0].Status)
	assert.Equal(t, seats.StatusAvailable, seatMap[1].Status)
}

func TestGetAvailableSeats_DropsOverlayHeldSeats(t *testing.T) {
	svc, repo, seatRepo, _ := setupEventService(t)
	ctx := context.Background()

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night", Status: EventStatusPublished}
	seatRepo.rows = []seats.Seat{
		{ID: 101, EventID: 7, Status: seats.StatusAvailable},
		{ID: 102, EventID: 7, Status: seats.StatusAvailable},
		{ID: 103, EventID: 7, Status: seats.StatusBooked},
	}
	// 101 was just held; the row still reads AVAILABLE but the overlay
	// already knows better.
	require.NoError(t, svc.overlay.SetStatuses(ctx, 7, []int64{101}, seats.StatusHeld))

	available, err := svc.GetAvailableSeats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, int64(102), available[0].ID)
	assert.Equal(t, seats.StatusAvailable, available[0].Status)
}

func TestGetAvailableSeats_UnknownEvent(t *testing.T) {
	svc, _, _, _ := setupEventService(t)

	_, err := svc.GetAvailableSeats(context.Background(), 404)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestGetSeatSummary_CountsMergedStatuses(t *testing.T) {
	svc, repo, seatRepo, mr := setupEventService(t)
	ctx := context.Background()

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night"}
	seatRepo.rows = []seats.Seat{
		{ID: 101, EventID: 7, Status: seats.StatusAvailable},
		{ID: 102, EventID: 7, Status: seats.StatusAvailable},
		{ID: 103, EventID: 7, Status: seats.StatusAvailable},
		{ID: 104, EventID: 7, Status: seats.StatusBooked},
	}
	require.NoError(t, svc.overlay.SetStatuses(ctx, 7, []int64{102}, seats.StatusHeld))

	summary, err := svc.GetSeatSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Available)
	assert.Equal(t, int64(1), summary.Held)
	assert.Equal(t, int64(1), summary.Booked)
	assert.Equal(t, int64(4), summary.Total)
	assert.True(t, mr.Exists("boxoffice:seats:summary:event:7"))

	// A second read is served from cache even if the rows change.
	seatRepo.rows = nil
	cached, err := svc.GetSeatSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cached.Total)
}

func TestGetSeatSummary_EmptyOverlayUsesCountQuery(t *testing.T) {
	svc, repo, seatRepo, _ := setupEventService(t)
	ctx := context.Background()

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night"}
	seatRepo.rows = []seats.Seat{
		{ID: 101, EventID: 7, Status: seats.StatusAvailable},
		{ID: 102, EventID: 7, Status: seats.StatusHeld},
		{ID: 103, EventID: 7, Status: seats.StatusBooked},
		{ID: 104, EventID: 7, Status: seats.StatusBooked},
	}

	summary, err := svc.GetSeatSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Available)
	assert.Equal(t, int64(1), summary.Held)
	assert.Equal(t, int64(2), summary.Booked)
	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, 1, seatRepo.countCalls, "no overlay entries should route to the grouped count")
}

func TestGetEvent_CachesDetail(t *testing.T) {
	svc, repo, _, _ := setupEventService(t)
	ctx := context.Background()

	repo.events[7] = &Event{ID: 7, Name: "Jazz Night", Venue: "Blue Room", Status: EventStatusPublished}

	first, err := svc.GetEvent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", first.Name)
	assert.Equal(t, 1, repo.getCalls)

	_, err = svc.GetEvent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls, "second read should come from cache")
}

func TestGetEvent_NotFound(t *testing.T) {
	svc, _, _, _ := setupEventService(t)

	_, err := svc.GetEvent(context.Background(), 404)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents_ClampsPagination(t *testing.T) {
	svc, repo, _, _ := setupEventService(t)

	repo.listResult = []Event{{ID: 1, Name: "Jazz Night"}}
	repo.listTotal = 45

	result, err := svc.ListEvents(context.Background(), 0, 500, "")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastPage)
	assert.Equal(t, 20, repo.lastLimit)
	assert.Equal(t, int64(45), result.Pagination.Total)
	assert.Equal(t, 3, result.Pagination.TotalPages)

	// Same page served from cache on the next call.
	_, err = svc.ListEvents(context.Background(), 0, 500, "")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestGetUpcomingEvents_DefaultsLimit(t *testing.T) {
	svc, repo, _, _ := setupEventService(t)

	repo.upcoming = []Event{{ID: 1, Name: "Soonest"}}

	events, err := svc.GetUpcomingEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastUpcomingLimit)
	require.Len(t, events, 1)
	assert.Equal(t, "Soonest", events[0].Name)
}

func TestCalculateTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{10, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateTotalPages(tt.total, tt.limit))
	}
}
