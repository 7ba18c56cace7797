package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/outbox"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type memState struct {
	purchases map[string]Purchase
	items     map[string]PurchasedItem
	lines     map[string]inventory.InventoryLine
	events    []outbox.Event
}

func (s memState) clone() memState {
	c := memState{
		purchases: make(map[string]Purchase, len(s.purchases)),
		items:     make(map[string]PurchasedItem, len(s.items)),
		lines:     make(map[string]inventory.InventoryLine, len(s.lines)),
		events:    append([]outbox.Event(nil), s.events...),
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	return c
}

// memStore backs every repository the use case needs. A transaction holds
// the store lock from BeginTx until CommitTx or Rollback, which serializes
// transactions the way row locks on the touched rows would.
type memStore struct {
	mu       sync.Mutex
	state    memState
	active   *sql.Tx
	snapshot memState
}

func newMemStore(lines ...inventory.InventoryLine) *memStore {
	s := &memStore{state: memState{
		purchases: make(map[string]Purchase),
		items:     make(map[string]PurchasedItem),
		lines:     make(map[string]inventory.InventoryLine),
	}}
	for _, l := range lines {
		s.state.lines[l.ID] = l
	}
	return s
}

// with runs fn under the store lock unless tx already holds it.
func (s *memStore) with(tx *sql.Tx, fn func()) {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func (s *memStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	s.mu.Lock()
	tx := &sql.Tx{}
	s.active = tx
	s.snapshot = s.state.clone()
	return tx, nil
}

func (s *memStore) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if tx == nil || tx != s.active {
		return nil
	}
	s.active = nil
	s.mu.Unlock()
	return nil
}

func (s *memStore) Rollback(ctx context.Context, tx *sql.Tx) error {
	if tx == nil || tx != s.active {
		return nil
	}
	s.state = s.snapshot
	s.active = nil
	s.mu.Unlock()
	return nil
}

// PurchaseRepository

func (s *memStore) Save(ctx context.Context, p Purchase, tx *sql.Tx) error {
	s.with(tx, func() {
		p.Items = nil
		s.state.purchases[p.ID] = p
	})
	return nil
}

func (s *memStore) FindByID(ctx context.Context, ID string, tx *sql.Tx) (p Purchase, err error) {
	s.with(tx, func() {
		var ok bool
		if p, ok = s.state.purchases[ID]; !ok {
			err = errors.New(http.StatusNotFound, status.NOT_FOUND, "purchase is not found")
		}
	})
	return
}

func (s *memStore) FindByPaymentReference(ctx context.Context, reference string, tx *sql.Tx) (p Purchase, err error) {
	s.with(tx, func() {
		for _, candidate := range s.state.purchases {
			if (candidate.PaymentReference != nil && *candidate.PaymentReference == reference) ||
				(candidate.PaymentIntent != nil && *candidate.PaymentIntent == reference) {
				p = candidate
				return
			}
		}
		err = errors.New(http.StatusNotFound, status.NOT_FOUND, "purchase is not found")
	})
	return
}

func (s *memStore) FindMany(ctx context.Context, buyerID int64, offset, limit int64, tx *sql.Tx) (out []Purchase, err error) {
	s.with(tx, func() {
		all := make([]Purchase, 0)
		for _, p := range s.state.purchases {
			if p.BuyerID != nil && *p.BuyerID == buyerID {
				all = append(all, p)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
		for k := offset; k < int64(len(all)) && k < offset+limit; k++ {
			out = append(out, all[k])
		}
	})
	return
}

func (s *memStore) Count(ctx context.Context, buyerID int64, tx *sql.Tx) (n int64, err error) {
	s.with(tx, func() {
		for _, p := range s.state.purchases {
			if p.BuyerID != nil && *p.BuyerID == buyerID {
				n++
			}
		}
	})
	return
}

func (s *memStore) UpdateCheckout(ctx context.Context, ID string, paymentReference, checkoutURL string, updatedAt time.Time, tx *sql.Tx) error {
	s.with(tx, func() {
		p := s.state.purchases[ID]
		p.PaymentReference = &paymentReference
		p.CheckoutURL = &checkoutURL
		p.UpdatedAt = updatedAt
		s.state.purchases[ID] = p
	})
	return nil
}

func (s *memStore) transition(ID, from, to string, tx *sql.Tx, mutate func(*Purchase)) (ok bool) {
	s.with(tx, func() {
		p, found := s.state.purchases[ID]
		if !found || p.State != from {
			return
		}
		p.State = to
		if mutate != nil {
			mutate(&p)
		}
		s.state.purchases[ID] = p
		ok = true
	})
	return
}

func (s *memStore) MarkPaid(ctx context.Context, ID string, paymentIntent *string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	return s.transition(ID, StatePending, StatePaid, tx, func(p *Purchase) {
		if paymentIntent != nil {
			p.PaymentIntent = paymentIntent
		}
		p.UpdatedAt = updatedAt
	}), nil
}

func (s *memStore) MarkFailed(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	return s.transition(ID, StatePending, StateFailed, tx, nil), nil
}

func (s *memStore) MarkRefunded(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	return s.transition(ID, StatePaid, StateRefunded, tx, nil), nil
}

// purchasedItems exposes the PurchasedItemRepository side of the store; the
// method sets collide on Save, FindByID and MarkRefunded.
type purchasedItems struct {
	*memStore
}

func (s purchasedItems) Save(ctx context.Context, item PurchasedItem, tx *sql.Tx) error {
	s.with(tx, func() {
		s.state.items[item.ID] = item
	})
	return nil
}

func (s purchasedItems) FindByID(ctx context.Context, ID string, tx *sql.Tx) (item PurchasedItem, err error) {
	s.with(tx, func() {
		var ok bool
		if item, ok = s.state.items[ID]; !ok {
			err = errors.New(http.StatusNotFound, status.NOT_FOUND, "purchased item is not found")
		}
	})
	return
}

func (s purchasedItems) FindManyByPurchaseID(ctx context.Context, purchaseID string, tx *sql.Tx) (out []PurchasedItem, err error) {
	s.with(tx, func() {
		out = s.itemsOf(purchaseID)
	})
	return
}

func (s purchasedItems) CountByState(ctx context.Context, purchaseID string, state string, tx *sql.Tx) (n int64, err error) {
	s.with(tx, func() {
		for _, item := range s.state.items {
			if item.PurchaseID == purchaseID && item.State == state {
				n++
			}
		}
	})
	return
}

func (s purchasedItems) MarkPaidByPurchaseID(ctx context.Context, purchaseID string, updatedAt time.Time, tx *sql.Tx) error {
	s.with(tx, func() {
		for id, item := range s.state.items {
			if item.PurchaseID == purchaseID && item.State == StatePending {
				item.State = StatePaid
				item.UpdatedAt = updatedAt
				s.state.items[id] = item
			}
		}
	})
	return nil
}

func (s purchasedItems) MarkRefunded(ctx context.Context, ID string, refundReference, reason *string, refundedAt time.Time, tx *sql.Tx) (ok bool, err error) {
	s.with(tx, func() {
		item, found := s.state.items[ID]
		if !found || item.State != StatePaid {
			return
		}
		item.State = StateRefunded
		item.RefundedAt = &refundedAt
		item.RefundReference = refundReference
		item.RefundReason = reason
		s.state.items[ID] = item
		ok = true
	})
	return
}

// inventoryLines exposes the InventoryLineRepository side of the store.
type inventoryLines struct {
	*memStore
}

func (s inventoryLines) FindByID(ctx context.Context, ID string, tx *sql.Tx) (l inventory.InventoryLine, err error) {
	s.with(tx, func() {
		var ok bool
		if l, ok = s.state.lines[ID]; !ok {
			err = errors.New(http.StatusNotFound, status.NOT_FOUND, "inventory line is not found")
		}
	})
	return
}

func (s inventoryLines) FindAvailableByPurchasable(ctx context.Context, ref purchasable.Reference, tx *sql.Tx) (out []inventory.InventoryLine, err error) {
	s.with(tx, func() {
		for _, l := range s.state.lines {
			if l.BelongsTo(ref) && !l.SoftDeleted {
				out = append(out, l)
			}
		}
	})
	return
}

func (s inventoryLines) Decrement(ctx context.Context, ID string, n int64, tx *sql.Tx) (err error) {
	s.with(tx, func() {
		l := s.state.lines[ID]
		if l.AvailableQty < n {
			err = errors.New(http.StatusConflict, status.INSUFFICIENT_QUANTITY, fmt.Sprintf("inventory line '%s' does not have %d units left", ID, n))
			return
		}
		l.AvailableQty -= n
		s.state.lines[ID] = l
	})
	return
}

func (s inventoryLines) Increment(ctx context.Context, ID string, n int64, tx *sql.Tx) error {
	s.with(tx, func() {
		l := s.state.lines[ID]
		l.AvailableQty += n
		s.state.lines[ID] = l
	})
	return nil
}

// outboxWriter exposes the OutboxWriter side of the store.
type outboxWriter struct {
	*memStore
}

func (s outboxWriter) Save(ctx context.Context, e outbox.Event, tx *sql.Tx) error {
	s.with(tx, func() {
		s.state.events = append(s.state.events, e)
	})
	return nil
}

// helpers for assertions, all take the lock

func (s *memStore) itemsOf(purchaseID string) []PurchasedItem {
	out := make([]PurchasedItem, 0)
	for _, item := range s.state.items {
		if item.PurchaseID == purchaseID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) available(lineID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.lines[lineID].AvailableQty
}

func (s *memStore) purchase(ID string) Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.purchases[ID]
	p.Items = s.itemsOf(ID)
	return p
}

func (s *memStore) eventsOfType(eventType string) []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Event, 0)
	for _, e := range s.state.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) purchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.purchases)
}

type registryMock struct{}

func (registryMock) Resolve(ctx context.Context, ref purchasable.Reference, tx *sql.Tx) (purchasable.Purchasable, error) {
	if ref != concert {
		return purchasable.Purchasable{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "purchasable is not found")
	}
	return purchasable.Purchasable{Kind: ref.Kind, ID: ref.ID, Name: "Concert"}, nil
}

type paymentProviderMock struct {
	mu          sync.Mutex
	checkoutErr error
	refundErr   error
	checkouts   []Purchase
	refunds     []RefundCommand
}

func (m *paymentProviderMock) CreateCheckout(ctx context.Context, p Purchase) (Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkouts = append(m.checkouts, p)
	if m.checkoutErr != nil {
		return Checkout{}, m.checkoutErr
	}
	return Checkout{SessionID: "cs_" + p.ID, URL: "https://pay.example/cs_" + p.ID}, nil
}

func (m *paymentProviderMock) Refund(ctx context.Context, cmd RefundCommand) (RefundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, cmd)
	if m.refundErr != nil {
		return RefundResult{}, m.refundErr
	}
	return RefundResult{ID: fmt.Sprintf("re_%d", len(m.refunds)), Status: "succeeded"}, nil
}

func (m *paymentProviderMock) refundCalls() []RefundCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RefundCommand(nil), m.refunds...)
}

type notifierMock struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (m *notifierMock) NotifyPurchasePaid(ctx context.Context, p Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, p.ID)
	return m.err
}

func (m *notifierMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notified)
}
