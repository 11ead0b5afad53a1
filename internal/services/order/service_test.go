package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"petshop/internal/logger"
	"petshop/internal/messaging"
	"petshop/internal/metrics"
	"petshop/internal/models"
)

// memStore keeps created orders in memory and can simulate the
// statement-level cooldown guard and storage failures.
type memStore struct {
	orders      []*models.Order
	createErr   error
	rateLimited bool
}

func (s *memStore) CreateOrder(_ context.Context, o *models.Order, _ time.Duration) (uuid.UUID, error) {
	if s.createErr != nil {
		return uuid.Nil, s.createErr
	}
	if s.rateLimited {
		return uuid.Nil, models.ErrRateLimited
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now().UTC()
	s.orders = append(s.orders, o)
	return o.ID, nil
}

// fakeGate reproduces the cooldown semantics with an adjustable clock.
type fakeGate struct {
	admitted map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

func newFakeGate(window time.Duration, now func() time.Time) *fakeGate {
	return &fakeGate{
		admitted: make(map[string]time.Time),
		window:   window,
		now:      now,
	}
}

func (g *fakeGate) CheckAndAdmit(_ context.Context, originAddress, contactNumber string) error {
	if originAddress == "" && contactNumber == "" {
		return models.ErrMissingIdentifier
	}
	for _, key := range []string{originAddress, contactNumber} {
		if key == "" {
			continue
		}
		if at, ok := g.admitted[key]; ok && g.now().Sub(at) < g.window {
			return models.ErrRateLimited
		}
	}
	return nil
}

func (g *fakeGate) RecordAdmission(_ context.Context, originAddress, contactNumber string) {
	for _, key := range []string{originAddress, contactNumber} {
		if key != "" {
			g.admitted[key] = g.now()
		}
	}
}

// fakeLedger tracks stock in memory.
type fakeLedger struct {
	records      map[uuid.UUID]models.StockRecord
	decrementErr error
	checked      int
}

func newFakeLedger(records ...models.StockRecord) *fakeLedger {
	l := &fakeLedger{records: make(map[uuid.UUID]models.StockRecord)}
	for _, rec := range records {
		l.records[rec.ItemID] = rec
	}
	return l
}

func (l *fakeLedger) CheckAvailability(_ context.Context, requested map[uuid.UUID]int) error {
	l.checked++
	for id, need := range requested {
		rec, ok := l.records[id]
		if !ok || !rec.TrackStock {
			continue
		}
		if rec.Quantity < need {
			return &models.InsufficientStockError{
				ItemID:    id,
				Name:      rec.Name,
				Available: rec.Quantity,
				Requested: need,
			}
		}
	}
	return nil
}

func (l *fakeLedger) Decrement(_ context.Context, quantities map[uuid.UUID]int) error {
	if l.decrementErr != nil {
		return l.decrementErr
	}
	for id, qty := range quantities {
		if rec, ok := l.records[id]; ok && rec.TrackStock {
			l.records[id] = rec.ApplyDecrement(qty)
		}
	}
	return nil
}

type fakePublisher struct {
	published []*messaging.OrderConfirmation
	err       error
}

func (p *fakePublisher) PublishOrderConfirmed(_ context.Context, c *messaging.OrderConfirmation) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, c)
	return nil
}

type fixture struct {
	service   *Service
	store     *memStore
	gate      *fakeGate
	ledger    *fakeLedger
	publisher *fakePublisher
	clock     *time.Time
}

func newFixture(records ...models.StockRecord) *fixture {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	store := &memStore{}
	gate := newFakeGate(time.Minute, func() time.Time { return *clock })
	ledger := newFakeLedger(records...)
	publisher := &fakePublisher{}

	service := NewService(store, gate, ledger, publisher,
		logger.New("test"), metrics.NewRegistry(), time.Minute, 50)

	return &fixture{
		service:   service,
		store:     store,
		gate:      gate,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
	}
}

func strPtr(s string) *string { return &s }

func trackedRecord(id uuid.UUID, name string, qty, threshold int) models.StockRecord {
	return models.StockRecord{
		ItemID:      id,
		Name:        name,
		TrackStock:  true,
		Quantity:    qty,
		Threshold:   threshold,
		IsAvailable: qty > threshold,
	}
}

func deliveryRequest(itemID uuid.UUID, quantity int) *models.SubmitOrderRequest {
	unit := decimal.NewFromInt(150)
	return &models.SubmitOrderRequest{
		CustomerName:  "Jane Doe",
		ContactNumber: "09171234567",
		ServiceType:   "delivery",
		Address:       strPtr("123 Mabini St"),
		PaymentMethod: "cash",
		Items: []models.OrderItem{
			{
				ItemID:    itemID,
				Name:      "Chicken Adobo",
				UnitPrice: unit,
				Quantity:  quantity,
			},
		},
		Total:     unit.Mul(decimal.NewFromInt(int64(quantity))),
		IPAddress: "203.0.113.7",
	}
}

func TestSubmitOrder_HappyPath(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 2))

	resp, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 2), "req_test")
	if err != nil {
		t.Fatalf("SubmitOrder returned error: %v", err)
	}

	if resp.OrderID == uuid.Nil {
		t.Fatalf("expected an order id")
	}
	if resp.Status != models.StatusPending {
		t.Fatalf("expected status pending, got %s", resp.Status)
	}
	if want := decimal.NewFromInt(300); !resp.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, resp.Total)
	}

	if len(f.store.orders) != 1 {
		t.Fatalf("expected one persisted order, got %d", len(f.store.orders))
	}

	rec := f.ledger.records[itemID]
	if rec.Quantity != 8 {
		t.Fatalf("expected stock decremented to 8, got %d", rec.Quantity)
	}
	if !rec.IsAvailable {
		t.Fatalf("expected item to stay available above its threshold")
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(f.publisher.published))
	}
	if got := f.publisher.published[0].CustomerName; got != "Jane Doe" {
		t.Fatalf("unexpected confirmation customer: %s", got)
	}
}

func TestSubmitOrder_InsufficientStock(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 1, 0))

	_, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 2), "req_test")

	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 1 || stockErr.Requested != 2 {
		t.Fatalf("unexpected shortfall details: %+v", stockErr)
	}

	if len(f.store.orders) != 0 {
		t.Fatalf("expected no persisted order")
	}
	if got := f.ledger.records[itemID].Quantity; got != 1 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
}

func TestSubmitOrder_AggregatesLineItemsPerCatalogItem(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 6, 0))

	req := deliveryRequest(itemID, 3)
	spicy := models.Variation{Name: "Spicy", PriceDelta: decimal.Zero}
	req.Items = append(req.Items, models.OrderItem{
		ItemID:    itemID,
		Name:      "Chicken Adobo",
		Variation: &spicy,
		UnitPrice: decimal.NewFromInt(150),
		Quantity:  4,
	})
	req.Total = decimal.NewFromInt(150 * 7)

	_, err := f.service.SubmitOrder(context.Background(), req, "req_test")

	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 7 {
		t.Fatalf("expected aggregated request of 7, got %d", stockErr.Requested)
	}
}

func TestSubmitOrder_CooldownWindow(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 100, 0))

	if _, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_1"); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	_, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_2")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected rate-limited rejection, got %v", err)
	}
	if len(f.store.orders) != 1 {
		t.Fatalf("expected only the first order to persist")
	}

	*f.clock = f.clock.Add(61 * time.Second)

	if _, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_3"); err != nil {
		t.Fatalf("submission after window failed: %v", err)
	}
	if len(f.store.orders) != 2 {
		t.Fatalf("expected two persisted orders, got %d", len(f.store.orders))
	}
}

func TestSubmitOrder_SharedContactAcrossAddresses(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 100, 0))

	if _, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_1"); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	// Same contact number from a different network address.
	req := deliveryRequest(itemID, 1)
	req.IPAddress = "198.51.100.9"

	if _, err := f.service.SubmitOrder(context.Background(), req, "req_2"); !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected rate-limited rejection, got %v", err)
	}
}

func TestSubmitOrder_MissingIdentifier(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))

	req := deliveryRequest(itemID, 1)
	req.ContactNumber = ""
	req.IPAddress = ""

	_, err := f.service.SubmitOrder(context.Background(), req, "req_test")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected a rate-limited style rejection, got %v", err)
	}
	if f.ledger.checked != 0 {
		t.Fatalf("expected the stock check to be skipped")
	}
}

func TestSubmitOrder_ValidationFailure(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))

	req := deliveryRequest(itemID, 1)
	req.Address = nil

	_, err := f.service.SubmitOrder(context.Background(), req, "req_test")
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(f.gate.admitted) != 0 {
		t.Fatalf("a rejected submission must not start a cooldown")
	}
}

func TestSubmitOrder_PersistenceFailure(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))
	f.store.createErr = &models.PersistenceError{Op: "insert order", Err: errors.New("connection reset")}

	_, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_test")
	var persistenceErr *models.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	if got := f.ledger.records[itemID].Quantity; got != 10 {
		t.Fatalf("expected stock untouched after a failed insert, got %d", got)
	}
	if len(f.publisher.published) != 0 {
		t.Fatalf("expected no confirmation for a failed order")
	}
	if len(f.gate.admitted) != 0 {
		t.Fatalf("a failed submission must not start a cooldown")
	}
}

func TestSubmitOrder_StatementLevelGuard(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))
	f.store.rateLimited = true

	_, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_test")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected the storage guard to surface as rate limited, got %v", err)
	}
}

func TestSubmitOrder_DecrementFailureDoesNotFailOrder(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))
	f.ledger.decrementErr = errors.New("connection reset")

	resp, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_test")
	if err != nil {
		t.Fatalf("expected the order to succeed despite decrement failure: %v", err)
	}
	if resp.OrderID == uuid.Nil {
		t.Fatalf("expected an order id")
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected the confirmation to still go out")
	}
}

func TestSubmitOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	itemID := uuid.New()
	f := newFixture(trackedRecord(itemID, "Chicken Adobo", 10, 0))
	f.publisher.err = errors.New("channel closed")

	if _, err := f.service.SubmitOrder(context.Background(), deliveryRequest(itemID, 1), "req_test"); err != nil {
		t.Fatalf("expected the order to succeed despite publish failure: %v", err)
	}
	if len(f.store.orders) != 1 {
		t.Fatalf("expected the order to persist")
	}
}

func TestAggregateQuantities(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	items := []models.OrderItem{
		{ItemID: a, Quantity: 3},
		{ItemID: b, Quantity: 1},
		{ItemID: a, Quantity: 4},
	}

	agg := aggregateQuantities(items)
	if agg[a] != 7 || agg[b] != 1 {
		t.Fatalf("unexpected aggregation: %v", agg)
	}
}
