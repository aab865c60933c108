package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/cart"
)

type fakeRecords struct {
	tables map[string][]backend.Record
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{tables: map[string][]backend.Record{}}
}

func (f *fakeRecords) Select(ctx context.Context, table string, q backend.Query) ([]backend.Record, error) {
	var out []backend.Record
	for _, row := range f.tables[table] {
		if matches(row, q) {
			out = append(out, row)
		}
		if q.LimitRows > 0 && len(out) == q.LimitRows {
			break
		}
	}
	return out, nil
}

func (f *fakeRecords) Insert(ctx context.Context, table string, values backend.Record) (backend.Record, error) {
	row := backend.Record{"id": uuid.NewString()}
	for k, v := range values {
		row[k] = v
	}
	f.tables[table] = append(f.tables[table], row)
	return row, nil
}

func (f *fakeRecords) Update(ctx context.Context, table string, q backend.Query, values backend.Record) ([]backend.Record, error) {
	var out []backend.Record
	for _, row := range f.tables[table] {
		if matches(row, q) {
			for k, v := range values {
				row[k] = v
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRecords) Delete(ctx context.Context, table string, q backend.Query) error { return nil }

func matches(row backend.Record, q backend.Query) bool {
	for _, flt := range q.Filters {
		if flt.Op != backend.OpEq {
			return false
		}
		if fmt.Sprint(row[flt.Column]) != fmt.Sprint(flt.Value) {
			return false
		}
	}
	return true
}

type fakePublisher struct {
	published []Order
	err       error
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, o Order) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, o)
	return nil
}

func quietLogger() *log.Logger { return log.New(bytes.NewBuffer(nil), "", 0) }

func testItems() []cart.Item {
	return []cart.Item{
		{ID: "RING-1", Name: "Solitaire Ring", Price: 1200, Quantity: 2},
		{ID: "NECK-1", Name: "Pendant", Price: 800, Quantity: 1},
	}
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	records := newFakeRecords()
	pub := &fakePublisher{}
	svc := NewService(records, pub, quietLogger())

	order, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentPending, order.PaymentStatus)
	assert.Equal(t, 3200.0, order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Solitaire Ring", order.Items[0].ProductName)

	// First timeline entry marks the placement.
	tl := records.tables[timelineTable]
	require.Len(t, tl, 1)
	assert.Equal(t, "pending", tl[0]["status"])

	require.Len(t, pub.published, 1)
	assert.Equal(t, order.ID, pub.published[0].ID)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc := NewService(newFakeRecords(), nil, quietLogger())
	_, err := svc.Checkout(context.Background(), "u-1", nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutSurvivesBrokerOutage(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(newFakeRecords(), &fakePublisher{err: errors.New("broker down")},
		log.New(&buf, "", 0))

	order, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Contains(t, buf.String(), "broker down")
}

func TestListByUserIncludesItems(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, nil, quietLogger())

	_, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), "u-2", testItems()[:1])
	require.NoError(t, err)

	got, err := svc.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 2)
}

func TestGetLoadsTimeline(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, nil, quietLogger())

	placed, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), placed.ID, StatusProcessing, "picked up", "admin@axels.com")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Timeline, 2)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestUpdateStatusFollowsFulfillmentFlow(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, nil, quietLogger())
	placed, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)

	for _, next := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		got, err := svc.UpdateStatus(context.Background(), placed.ID, next, "", "admin@axels.com")
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}
	// Delivered is terminal.
	_, err = svc.UpdateStatus(context.Background(), placed.ID, StatusCancelled, "", "admin@axels.com")
	var illegal ErrIllegalTransition
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, StatusDelivered, illegal.From)
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	tests := map[string]struct {
		from, to Status
		ok       bool
	}{
		"pending to processing":  {StatusPending, StatusProcessing, true},
		"pending to cancelled":   {StatusPending, StatusCancelled, true},
		"pending to shipped":     {StatusPending, StatusShipped, false},
		"pending to delivered":   {StatusPending, StatusDelivered, false},
		"processing to shipped":  {StatusProcessing, StatusShipped, true},
		"shipped to cancelled":   {StatusShipped, StatusCancelled, false},
		"cancelled to pending":   {StatusCancelled, StatusPending, false},
		"delivered to delivered": {StatusDelivered, StatusDelivered, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCancellingPaidOrderRefundsPayment(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, nil, quietLogger())
	placed, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)

	_, err = svc.SetPaymentStatus(context.Background(), placed.ID, PaymentCompleted)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), placed.ID, StatusCancelled, "customer request", "admin@axels.com")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, PaymentRefunded, got.PaymentStatus)
}

func TestSetPaymentStatusValidates(t *testing.T) {
	svc := NewService(newFakeRecords(), nil, quietLogger())
	_, err := svc.SetPaymentStatus(context.Background(), "o-1", PaymentStatus("paid"))
	assert.Error(t, err)
}

func TestGetMissingOrder(t *testing.T) {
	svc := NewService(newFakeRecords(), nil, quietLogger())
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAllFiltersByStatus(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, nil, quietLogger())

	a, err := svc.Checkout(context.Background(), "u-1", testItems())
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), "u-2", testItems()[:1])
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), a.ID, StatusProcessing, "", "admin@axels.com")
	require.NoError(t, err)

	got, err := svc.ListAll(context.Background(), StatusProcessing)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	all, err := svc.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
