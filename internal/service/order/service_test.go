package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/internal/deposit"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/lifecycle"
	"github.com/sugarline/bakehouse/internal/pricing"
	"github.com/sugarline/bakehouse/internal/scheduling"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

// fakeStore is an in-memory Store with the same compare-and-swap semantics
// as the SQL repository: a transition only commits if the row still carries
// the expected status, and the audit entry commits with it or not at all.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*entity.Order
	audits map[int64][]entity.AuditEntry
	paid   map[int64]money.Cents
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[int64]*entity.Order),
		audits: make(map[int64][]entity.AuditEntry),
		paid:   make(map[int64]money.Cents),
	}
}

func (f *fakeStore) Create(_ context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, errorbank.NotFound("order not found")
	}
	clone := *order
	return &clone, nil
}

func (f *fakeStore) AdvanceStatus(_ context.Context, id int64, from, to lifecycle.Status, actor string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, errorbank.NotFound("order not found")
	}
	if order.Status != from {
		return nil, errorbank.Conflict("order status changed concurrently")
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	f.audits[id] = append(f.audits[id], entity.AuditEntry{
		OrderID:    id,
		EventType:  entity.AuditStatusChanged,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
	})
	clone := *order
	return &clone, nil
}

func (f *fakeStore) Cancel(_ context.Context, id int64, reason, actor string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, errorbank.NotFound("order not found")
	}
	if order.Status != lifecycle.StatusPending {
		return nil, errorbank.Conflict("order status changed concurrently")
	}
	now := time.Now().UTC()
	order.Status = lifecycle.StatusCancelled
	order.CancellationReason = reason
	order.CancelledAt = now
	order.CancelledBy = actor
	order.UpdatedAt = now
	f.audits[id] = append(f.audits[id], entity.AuditEntry{
		OrderID:    id,
		EventType:  entity.AuditCancelled,
		FromStatus: lifecycle.StatusPending,
		ToStatus:   lifecycle.StatusCancelled,
		Actor:      actor,
		Detail:     reason,
	})
	clone := *order
	return &clone, nil
}

func (f *fakeStore) UpdateDetails(_ context.Context, order *entity.Order) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.orders[order.ID]
	if !ok {
		return nil, errorbank.NotFound("order not found")
	}
	if err := lifecycle.EnsureEditable(current.Status); err != nil {
		return nil, err
	}
	paid := f.paid[order.ID]
	if paid > order.TotalAmount {
		return nil, errorbank.Unprocessable(
			fmt.Sprintf("new total %s is below the %s already paid", order.TotalAmount, paid),
		)
	}
	updated := *current
	updated.Size = order.Size
	updated.Tiers = order.Tiers
	updated.Flavor = order.Flavor
	updated.Icing = order.Icing
	updated.Fillings = order.Fillings
	updated.Colors = order.Colors
	updated.Decorations = order.Decorations
	updated.Notes = order.Notes
	updated.TotalAmount = order.TotalAmount
	updated.DepositRequired = order.DepositRequired
	updated.BalanceDue = order.TotalAmount.Sub(paid)
	updated.DepositMet = current.DepositMet || order.DepositSatisfied(paid)
	updated.IsRushOrder = order.IsRushOrder
	updated.PickupDate = order.PickupDate
	updated.PickupTime = order.PickupTime
	updated.UpdatedAt = time.Now().UTC()
	f.orders[order.ID] = &updated
	clone := updated
	return &clone, nil
}

func (f *fakeStore) AuditByOrder(_ context.Context, orderID int64) ([]entity.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.AuditEntry(nil), f.audits[orderID]...), nil
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Policy = config.Policy{
		DepositPercent:           50,
		RushDepositPercent:       75,
		PreferredDiscountPercent: 10,
		MinAdvanceDays:           2,
		RushThresholdDays:        2,
		CompletionBufferHours:    4,
	}
	return cfg
}

func newTestService(store *fakeStore) *Service {
	cfg := testConfig()
	return NewService(Params{
		Repository: store,
		Cache:      nil,
		Config:     cfg,
		Logger:     zap.NewNop(),
		Publisher:  nil,
		Calculator: pricing.NewCalculator(cfg),
		Scheduler:  scheduling.NewPolicy(cfg),
		Deposits:   deposit.NewPolicy(cfg),
	})
}

// validPickup returns a date safely past the notice window that does not
// land on a Sunday.
func validPickup() time.Time {
	d := time.Now().AddDate(0, 0, 5)
	if d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func validDraft() DraftOrder {
	return DraftOrder{
		CustomerID: 1,
		ProductID:  1,
		BasePrice:  2000,
		Selection: pricing.Selection{
			Size:   pricing.Size8Inch,
			Tiers:  2,
			Flavor: pricing.FlavorVanilla,
			Icing:  pricing.IcingButtercream,
		},
		PickupDate: validPickup(),
		PickupTime: "14:00",
	}
}

func TestQuoteDoesNotPersist(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	quote, err := svc.Quote(context.Background(), validDraft())
	require.NoError(t, err)

	// 2000 base + 1000 size + 1500 tier = 4500; 50% deposit = 2250.
	assert.Equal(t, money.Cents(4500), quote.Breakdown.Total)
	assert.Equal(t, 50, quote.DepositPercent)
	assert.Equal(t, money.Cents(2250), quote.DepositRequired)
	assert.Equal(t, money.Cents(2250), quote.BalanceAfter)
	assert.True(t, quote.Schedule.Valid)
	assert.False(t, quote.Schedule.Rush)
	assert.Empty(t, store.orders)
}

func TestQuoteSurfacesRejection(t *testing.T) {
	svc := newTestService(newFakeStore())

	draft := validDraft()
	draft.PickupDate = time.Now().AddDate(0, 0, -1)

	quote, err := svc.Quote(context.Background(), draft)
	require.NoError(t, err)
	assert.False(t, quote.Schedule.Valid)
	assert.Equal(t, scheduling.ReasonPastDate, quote.Schedule.RejectionReason)
}

func TestCreate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), validDraft())
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, lifecycle.StatusPending, order.Status)
	assert.Equal(t, money.Cents(4500), order.TotalAmount)
	assert.Equal(t, money.Cents(2250), order.DepositRequired)
	assert.Equal(t, money.Cents(4500), order.BalanceDue)
	assert.False(t, order.DepositMet)
	assert.False(t, order.IsRushOrder)
}

func TestCreateZeroDepositIsMetImmediately(t *testing.T) {
	store := newFakeStore()
	cfg := testConfig()
	cfg.Policy.DepositPercent = 0
	svc := NewService(Params{
		Repository: store,
		Cache:      nil,
		Config:     cfg,
		Logger:     zap.NewNop(),
		Publisher:  nil,
		Calculator: pricing.NewCalculator(cfg),
		Scheduler:  scheduling.NewPolicy(cfg),
		Deposits:   deposit.NewPolicy(cfg),
	})

	order, err := svc.Create(context.Background(), validDraft())
	require.NoError(t, err)

	// Nothing is owed up front, so the stored flag agrees with the ledger
	// projection from the first read.
	assert.Equal(t, money.Cents(0), order.DepositRequired)
	assert.True(t, order.DepositMet)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*DraftOrder)
	}{
		{"missing customer", func(d *DraftOrder) { d.CustomerID = 0 }},
		{"missing product", func(d *DraftOrder) { d.ProductID = 0 }},
		{"negative base price", func(d *DraftOrder) { d.BasePrice = -1 }},
		{"bad selection", func(d *DraftOrder) { d.Selection.Flavor = "pistachio" }},
		{"past pickup", func(d *DraftOrder) { d.PickupDate = time.Now().AddDate(0, 0, -1) }},
		{"short notice", func(d *DraftOrder) {
			d.PickupDate = time.Now().AddDate(0, 0, 1)
			if d.PickupDate.Weekday() == time.Sunday {
				d.PickupDate = d.PickupDate.AddDate(0, 0, 1)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(&draft)
			_, err := svc.Create(ctx, draft)
			require.Error(t, err)
			assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
		})
	}
}

func TestCreateShortNoticeRejectionNamesReason(t *testing.T) {
	svc := newTestService(newFakeStore())

	draft := validDraft()
	draft.PickupDate = time.Now().AddDate(0, 0, 1)
	if draft.PickupDate.Weekday() == time.Sunday {
		draft.PickupDate = draft.PickupDate.AddDate(0, 0, 1)
	}

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, scheduling.ReasonInsufficientNotice, errorbank.From(err).Message())
}

func TestAdvanceWalksLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	want := []lifecycle.Status{lifecycle.StatusPreparing, lifecycle.StatusReady, lifecycle.StatusCompleted}
	for _, status := range want {
		order, err = svc.Advance(ctx, order.ID, "baker")
		require.NoError(t, err)
		assert.Equal(t, status, order.Status)
	}

	// Completed is terminal.
	_, err = svc.Advance(ctx, order.ID, "baker")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindInvalidTransition, errorbank.From(err).Kind())

	trail, err := svc.Audit(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, lifecycle.StatusPending, trail[0].FromStatus)
	assert.Equal(t, lifecycle.StatusCompleted, trail[2].ToStatus)
}

func TestAdvanceRequiresActor(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Advance(context.Background(), 1, "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCancel(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, "customer changed mind", "alice")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer changed mind", cancelled.CancellationReason)
	assert.Equal(t, "alice", cancelled.CancelledBy)
	assert.False(t, cancelled.CancelledAt.IsZero())

	// The row survives cancellation.
	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, got.Status)
}

func TestCancelRejectedAfterPending(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = svc.Advance(ctx, order.ID, "baker")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, "too late", "alice")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindInvalidTransition, errorbank.From(err).Kind())
}

func TestUpdateDetailsLockedAfterPending(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)
	_, err = svc.Advance(ctx, order.ID, "baker")
	require.NoError(t, err)

	_, err = svc.UpdateDetails(ctx, order.ID, validDraft())
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindLocked, appErr.Kind())
	assert.Equal(t, "order is being prepared", appErr.Message())
}

func TestUpdateDetailsReprices(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.Create(ctx, validDraft())
	require.NoError(t, err)

	draft := validDraft()
	draft.Selection.Size = pricing.SizeFullSheet
	draft.Selection.Tiers = 1

	updated, err := svc.UpdateDetails(ctx, order.ID, draft)
	require.NoError(t, err)

	// 2000 base + 6500 full sheet = 8500; deposit rederived at 50%.
	assert.Equal(t, money.Cents(8500), updated.TotalAmount)
	assert.Equal(t, money.Cents(4250), updated.DepositRequired)
	assert.Equal(t, money.Cents(8500), updated.BalanceDue)
	assert.Equal(t, lifecycle.StatusPending, updated.Status)
}

// TestConcurrentAdvanceAndCancel races a status advance against a
// cancellation on the same pending order. Exactly one must win; the loser
// must fail without leaving a second audit entry behind.
func TestConcurrentAdvanceAndCancel(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := newFakeStore()
		svc := newTestService(store)
		ctx := context.Background()

		order, err := svc.Create(ctx, validDraft())
		require.NoError(t, err)

		var wg sync.WaitGroup
		var advanceErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, advanceErr = svc.Advance(ctx, order.ID, "baker")
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = svc.Cancel(ctx, order.ID, "changed mind", "alice")
		}()
		wg.Wait()

		if advanceErr == nil {
			require.Error(t, cancelErr)
		} else {
			require.NoError(t, cancelErr)
		}

		loser := advanceErr
		if loser == nil {
			loser = cancelErr
		}
		kind := errorbank.From(loser).Kind()
		assert.Contains(t, []errorbank.Kind{errorbank.KindConflict, errorbank.KindInvalidTransition}, kind)

		trail, err := svc.Audit(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, trail, 1)

		final, err := svc.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Contains(t, []lifecycle.Status{lifecycle.StatusPreparing, lifecycle.StatusCancelled}, final.Status)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}
