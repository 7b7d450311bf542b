package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/api"
	"github.com/mgn-dev/alx-backend/internal/counter"
	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/reservation"
	"github.com/mgn-dev/alx-backend/internal/store/memory"
)

type fixture struct {
	router http.Handler
	jobs   *memory.Store
	seats  *reservation.SeatService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	jobs := memory.New()
	counters := counter.NewMemory()

	seats := reservation.NewSeats(counters, log)
	products := reservation.NewProducts(counters, reservation.DefaultCatalog(), log)
	require.NoError(t, products.Reset(context.Background()))

	pool := queue.New(jobs, log, queue.WithPollInterval(time.Millisecond))
	require.NoError(t, pool.Register(domain.TypeReserveSeat, 1, seats.HandleReserve))
	t.Cleanup(pool.Stop)

	srv := api.New(log, jobs, pool, seats, products)
	return &fixture{router: srv.Routes(), jobs: jobs, seats: seats}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestAvailableSeats(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.seats.Reset(context.Background(), 50))

	rec := f.get(t, "/available_seats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int64
	decode(t, rec, &body)
	assert.EqualValues(t, 50, body["numberOfAvailableSeats"])
}

func TestReserveSeatBlockedBeforeReset(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/reserve_seat")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Reservations are blocked", body["status"])
}

func TestReserveSeatEnqueuesJob(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.seats.Reset(ctx, 50))

	rec := f.get(t, "/reserve_seat")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Reservation in process", body["status"])

	id, err := f.jobs.Dequeue(ctx, domain.TypeReserveSeat)
	require.NoError(t, err)
	assert.NotEmpty(t, id, "a reserve_seat job is queued")
}

func TestProcessDrainsQueue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.seats.Reset(ctx, 1))

	f.get(t, "/reserve_seat")

	rec := f.get(t, "/process")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Queue processing", body["status"])

	require.Eventually(t, func() bool {
		n, err := f.seats.Available(ctx)
		return err == nil && n == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, f.seats.Accepting())
}

func TestListProducts(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/list_products")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	decode(t, rec, &products)
	require.Len(t, products, 4)
	assert.EqualValues(t, 1, products[0]["itemId"])
	assert.Equal(t, "Suitcase 250", products[0]["itemName"])
}

func TestGetProductDetail(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/list_products/3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.EqualValues(t, 3, body["itemId"])
	assert.EqualValues(t, 2, body["initialStock"])
	assert.EqualValues(t, 2, body["currentStock"])
}

func TestGetProductNotFound(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/list_products/99", "/list_products/abc"} {
		rec := f.get(t, path)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, "Product not found", body["status"])
	}
}

func TestReserveProductUntilSoldOut(t *testing.T) {
	f := setup(t)

	// Item 3 has initialStock 2.
	for i := 0; i < 2; i++ {
		rec := f.get(t, "/reserve_product/3")
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		decode(t, rec, &body)
		assert.Equal(t, "Reservation confirmed", body["status"])
		assert.EqualValues(t, 3, body["itemId"])
	}

	rec := f.get(t, "/reserve_product/3")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "Not enough stock available", body["status"])
	assert.EqualValues(t, 3, body["itemId"])
}

func TestReserveProductNotFound(t *testing.T) {
	f := setup(t)
	rec := f.get(t, "/reserve_product/99")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec := f.get(t, "/jobs/unknown")
	require.Equal(t, http.StatusNotFound, rec.Code)

	j, err := f.jobs.Create(ctx, domain.TypePushNotification, json.RawMessage(`{"phoneNumber":"4151234567"}`))
	require.NoError(t, err)

	rec = f.get(t, "/jobs/"+j.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, j.ID, body["id"])
	assert.Equal(t, string(domain.Created), body["state"])
}
