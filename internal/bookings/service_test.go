package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/internal/events"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

// Fakes override only what each test path reaches; the embedded
// interfaces panic on anything else.

type fakeRepo struct {
	Repository
	holds     map[string]*SeatHold
	byIdemKey map[string]*SeatHold
	byPayment map[string]*Booking
	byRef     map[string]*Booking
}

func (f *fakeRepo) FindByHoldToken(ctx context.Context, holdToken string) (*SeatHold, error) {
	if h, ok := f.holds[holdToken]; ok {
		return h, nil
	}
	return nil, ErrHoldNotFound
}

func (f *fakeRepo) FindByIdempotencyKey(ctx context.Context, key string) (*SeatHold, error) {
	return f.byIdemKey[key], nil
}

func (f *fakeRepo) FindBookingByPaymentID(ctx context.Context, paymentID string) (*Booking, error) {
	return f.byPayment[paymentID], nil
}

func (f *fakeRepo) FindByBookingReference(ctx context.Context, reference string) (*Booking, error) {
	if b, ok := f.byRef[reference]; ok {
		return b, nil
	}
	return nil, ErrBookingNotFound
}

type fakeSeatRepo struct {
	seats.Repository
	records []seats.Seat
}

func (f *fakeSeatRepo) GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]seats.Seat, error) {
	return f.records, nil
}

type fakeEventRepo struct {
	events.Repository
	event *events.Event
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	if f.event == nil {
		return nil, events.ErrEventNotFound
	}
	return f.event, nil
}

func newTestService(t *testing.T) (*service, *fakeRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &fakeRepo{
		holds:     map[string]*SeatHold{},
		byIdemKey: map[string]*SeatHold{},
		byPayment: map[string]*Booking{},
		byRef:     map[string]*Booking{},
	}

	svc := &service{
		repo: repo,
		seatRepo: &fakeSeatRepo{records: []seats.Seat{
			{ID: 101, EventID: 7, Price: 100.00},
			{ID: 102, EventID: 7, Price: 120.50},
		}},
		eventRepo: &fakeEventRepo{event: &events.Event{ID: 7, Name: "Symphony Under Glass"}},
		locks:     seats.NewLockClient(client),
		overlay:   seats.NewStatusMap(client),
		cache:     cache.NewService(client),
		config: &config.BookingConfig{
			HoldDuration:    10 * time.Minute,
			MaxSeatsPerHold: 10,
			TxTimeout:       5 * time.Second,
		},
		log: logger.GetDefault(),
	}
	return svc, repo, mr
}

func TestValidateHoldRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *PlaceHoldRequest
		wantErr string
	}{
		{
			name:    "empty seat list",
			req:     &PlaceHoldRequest{EventID: 1, CustomerID: 42, SeatIDs: []int64{}},
			wantErr: "seat IDs cannot be empty",
		},
		{
			name:    "too many seats",
			req:     &PlaceHoldRequest{EventID: 1, CustomerID: 42, SeatIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
			wantErr: "cannot hold more than 10 seats at once",
		},
		{
			name:    "duplicate seats",
			req:     &PlaceHoldRequest{EventID: 1, CustomerID: 42, SeatIDs: []int64{101, 102, 101}},
			wantErr: "duplicate seat IDs are not allowed",
		},
		{
			name: "valid",
			req:  &PlaceHoldRequest{EventID: 1, CustomerID: 42, SeatIDs: []int64{101, 102}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHoldRequest(tt.req, 10)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantErr, validationErr.Message)
		})
	}
}

func TestPlaceHold_RejectsForeignSeatSets(t *testing.T) {
	tests := []struct {
		name    string
		records []seats.Seat
		req     *PlaceHoldRequest
		wantErr string
	}{
		{
			name:    "missing seats",
			records: []seats.Seat{{ID: 101, EventID: 7}},
			req:     &PlaceHoldRequest{EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102}},
			wantErr: "some seats were not found",
		},
		{
			name:    "seats from two events",
			records: []seats.Seat{{ID: 101, EventID: 7}, {ID: 102, EventID: 8}},
			req:     &PlaceHoldRequest{EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102}},
			wantErr: "all seats must belong to the same event",
		},
		{
			name:    "seats belong to another event entirely",
			records: []seats.Seat{{ID: 101, EventID: 8}, {ID: 102, EventID: 8}},
			req:     &PlaceHoldRequest{EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102}},
			wantErr: "event ID mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			svc.seatRepo = &fakeSeatRepo{records: tt.records}

			_, err := svc.PlaceHold(context.Background(), tt.req, "")

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantErr, validationErr.Message)
		})
	}
}

func TestPlaceHold_EventMustExist(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.eventRepo = &fakeEventRepo{}

	_, err := svc.PlaceHold(context.Background(), &PlaceHoldRequest{
		EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102},
	}, "")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "event not found", validationErr.Message)
}

func TestPlaceHold_LockConflictReleasesPartialLocks(t *testing.T) {
	svc, _, mr := newTestService(t)

	// Seat 102 is already fenced by another customer, so the acquire
	// loop wins 101 first and must give it back on failure.
	require.NoError(t, mr.Set("seat:7:102:HELD", "99:HOLD_OTHER"))

	_, err := svc.PlaceHold(context.Background(), &PlaceHoldRequest{
		EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102},
	}, "")

	assert.ErrorIs(t, err, ErrSeatsLocked)
	assert.False(t, mr.Exists("seat:7:101:HELD"))

	val, getErr := mr.Get("seat:7:102:HELD")
	require.NoError(t, getErr)
	assert.Equal(t, "99:HOLD_OTHER", val)
}

func TestPlaceHold_ReplayReturnsOriginalHold(t *testing.T) {
	svc, repo, _ := newTestService(t)

	created := time.Now().Add(-time.Minute)
	repo.byIdemKey["idem-1"] = &SeatHold{
		HoldToken:  "HOLD_ABC",
		CustomerID: 42,
		EventID:    7,
		SeatIDs:    Int64Slice{101, 102},
		SeatCount:  2,
		Status:     HoldStatusActive,
		ExpiresAt:  time.Now().Add(5 * time.Minute),
		CreatedAt:  created,
	}

	resp, err := svc.PlaceHold(context.Background(), &PlaceHoldRequest{
		EventID: 7, CustomerID: 42, SeatIDs: []int64{101, 102},
	}, "idem-1")

	require.NoError(t, err)
	assert.Equal(t, "HOLD_ABC", resp.HoldToken)
	assert.Equal(t, "Symphony Under Glass", resp.EventTitle)
	assert.Equal(t, 220.50, resp.TotalAmount)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.Equal(t, created, resp.CreatedAt)
	assert.Equal(t, "Seats already held for this request.", resp.Message)
}

func TestHoldMessage(t *testing.T) {
	assert.Equal(t, "Seats held successfully. Complete payment within 10 minutes.", holdMessage(false, 10*time.Minute))
	assert.Equal(t, "Seats held successfully in degraded mode. Complete payment within 10 minutes.", holdMessage(true, 10*time.Minute))
	assert.Equal(t, "Seats held successfully. Complete payment within 5 minutes.", holdMessage(false, 5*time.Minute))
}

func TestConfirmHold_RejectsBadIdentifiers(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ConfirmHold(context.Background(), "", &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-1"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.ConfirmHold(context.Background(), "HOLD_ABC", &ConfirmHoldRequest{CustomerID: 42})
	require.ErrorAs(t, err, &validationErr)
}

func TestConfirmHold_PaymentIDReplay(t *testing.T) {
	svc, repo, _ := newTestService(t)

	confirmed := time.Now().Add(-time.Minute)
	repo.byPayment["pay-1"] = &Booking{
		BookingReference: "BK12AB34CD",
		HoldToken:        "HOLD_ABC",
		CustomerID:       42,
		EventID:          7,
		SeatIDs:          Int64Slice{101, 102},
		TotalAmount:      220.50,
		PaymentID:        "pay-1",
		Status:           BookingStatusConfirmed,
		ConfirmedAt:      confirmed,
	}

	// Retrying the same confirm gets the original booking back.
	resp, err := svc.ConfirmHold(context.Background(), "HOLD_ABC", &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-1"})
	require.NoError(t, err)
	assert.Equal(t, "BK12AB34CD", resp.BookingReference)
	assert.Equal(t, confirmed, resp.ConfirmedAt)

	// The same payment against a different hold is a client bug.
	_, err = svc.ConfirmHold(context.Background(), "HOLD_XYZ", &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-1"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestConfirmHold_StateGates(t *testing.T) {
	future := time.Now().Add(5 * time.Minute)
	past := time.Now().Add(-5 * time.Minute)

	tests := []struct {
		name    string
		hold    *SeatHold
		req     *ConfirmHoldRequest
		wantErr error
	}{
		{
			name:    "already confirmed is a conflict",
			hold:    &SeatHold{HoldToken: "HOLD_ABC", CustomerID: 42, Status: HoldStatusConfirmed, ExpiresAt: past},
			req:     &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-2"},
			wantErr: ErrAlreadyConfirmed,
		},
		{
			name:    "cancelled hold is gone",
			hold:    &SeatHold{HoldToken: "HOLD_ABC", CustomerID: 42, Status: HoldStatusCancelled, ExpiresAt: future},
			req:     &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-2"},
			wantErr: ErrHoldNotActive,
		},
		{
			name:    "past deadline is gone even while the row says ACTIVE",
			hold:    &SeatHold{HoldToken: "HOLD_ABC", CustomerID: 42, Status: HoldStatusActive, ExpiresAt: past},
			req:     &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-2"},
			wantErr: ErrHoldNotActive,
		},
		{
			name:    "wrong customer",
			hold:    &SeatHold{HoldToken: "HOLD_ABC", CustomerID: 42, Status: HoldStatusActive, ExpiresAt: future},
			req:     &ConfirmHoldRequest{CustomerID: 99, PaymentID: "pay-2"},
			wantErr: ErrCustomerMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			repo.holds["HOLD_ABC"] = tt.hold

			_, err := svc.ConfirmHold(context.Background(), "HOLD_ABC", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfirmHold_UnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ConfirmHold(context.Background(), "HOLD_NOPE", &ConfirmHoldRequest{CustomerID: 42, PaymentID: "pay-1"})
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestGetHold_CacheRoundTrip(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.holds["HOLD_ABC"] = &SeatHold{
		HoldToken:  "HOLD_ABC",
		CustomerID: 42,
		EventID:    7,
		SeatIDs:    Int64Slice{101, 102},
		SeatCount:  2,
		Status:     HoldStatusActive,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}

	resp, err := svc.GetHold(context.Background(), "HOLD_ABC")
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, resp.SeatIDs)
	assert.Greater(t, resp.RemainingSeconds, int64(0))

	// The first lookup populated the cache, so the row can vanish and the
	// view still resolves until the cache entry expires with the hold.
	delete(repo.holds, "HOLD_ABC")

	resp, err = svc.GetHold(context.Background(), "HOLD_ABC")
	require.NoError(t, err)
	assert.Equal(t, "HOLD_ABC", resp.HoldToken)
	assert.Equal(t, "ACTIVE", resp.Status)
}

func TestGetHold_TerminalHoldNotCached(t *testing.T) {
	svc, repo, mr := newTestService(t)

	repo.holds["HOLD_ABC"] = &SeatHold{
		HoldToken:  "HOLD_ABC",
		CustomerID: 42,
		EventID:    7,
		SeatIDs:    Int64Slice{101},
		SeatCount:  1,
		Status:     HoldStatusCancelled,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}

	resp, err := svc.GetHold(context.Background(), "HOLD_ABC")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.False(t, mr.Exists(constants.BuildSeatHoldCacheKey("HOLD_ABC")))
}

func TestGetBooking(t *testing.T) {
	svc, repo, _ := newTestService(t)

	confirmed := time.Now().Add(-time.Hour)
	repo.byRef["BK12AB34CD"] = &Booking{
		BookingReference: "BK12AB34CD",
		HoldToken:        "HOLD_ABC",
		CustomerID:       42,
		EventID:          7,
		SeatIDs:          Int64Slice{101, 102},
		TotalAmount:      220.50,
		PaymentID:        "pay-1",
		Status:           BookingStatusConfirmed,
		ConfirmedAt:      confirmed,
	}

	resp, err := svc.GetBooking(context.Background(), "BK12AB34CD")
	require.NoError(t, err)
	assert.Equal(t, 220.50, resp.TotalAmount)
	assert.Equal(t, confirmed, resp.ConfirmedAt)

	_, err = svc.GetBooking(context.Background(), "BK99ZZ99ZZ")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = svc.GetBooking(context.Background(), "")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
