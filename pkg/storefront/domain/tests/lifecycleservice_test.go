package tests

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartservice "storefront/pkg/cart/domain/service"
	"storefront/pkg/common/domain"
	inventory "storefront/pkg/inventory/domain/model"
	ledgerservice "storefront/pkg/inventory/domain/service"
	session "storefront/pkg/session/domain/model"
	"storefront/pkg/storefront/domain/model"
	"storefront/pkg/storefront/domain/service"
)

const superAdmin = "100"

type fixture struct {
	lifecycle service.LifecycleService
	carts     cartservice.CartService
	registry  *session.Registry
	store     *mockCatalogStore
	messenger *mockMessenger
}

func setup(t *testing.T, products ...inventory.Product) *fixture {
	t.Helper()
	store := &mockCatalogStore{products: products}
	dispatcher := &mockEventDispatcher{}
	messenger := newMockMessenger()
	registry := session.NewRegistry()

	ledger := ledgerservice.NewLedgerService(store, dispatcher)
	carts := cartservice.NewCartService(ledger, dispatcher)
	roster := model.NewRoster(superAdmin)
	lifecycle := service.NewLifecycleService(roster, registry, carts, messenger, dispatcher)

	return &fixture{lifecycle: lifecycle, carts: carts, registry: registry, store: store, messenger: messenger}
}

func gadget(stock int) inventory.Product {
	return inventory.Product{ID: 1, Name: "Gadget", Category: "Gadgets", PriceCents: 5000, Stock: stock}
}

func TestCloseReturnsEveryCart(t *testing.T) {
	f := setup(t, gadget(10))
	sess := f.registry.Get("s1")
	_, err := f.carts.Add(sess.Cart, 1, 4)
	require.NoError(t, err)
	require.Equal(t, 6, f.store.products[0].Stock)

	require.NoError(t, f.lifecycle.Close(superAdmin))

	assert.False(t, f.lifecycle.IsOpen())
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, 10, f.store.products[0].Stock)

	notices := f.messenger.texts("s1")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "ORDER INTAKE IS CLOSED")
}

func TestCloseRetainsOnlyTheClosedNotice(t *testing.T) {
	f := setup(t, gadget(10))
	sess := f.registry.Get("s1")
	older := uuid.New()
	sess.RecordMessage(older)

	require.NoError(t, f.lifecycle.Close(superAdmin))

	assert.Contains(t, f.messenger.deleted, older)
	require.Len(t, sess.Messages, 1)
	assert.NotEqual(t, older, sess.Messages[0])
}

func TestCloseIsolatesPerSessionFailures(t *testing.T) {
	f := setup(t, gadget(10))
	s1 := f.registry.Get("s1")
	s2 := f.registry.Get("s2")
	_, err := f.carts.Add(s1.Cart, 1, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(s2.Cart, 1, 3)
	require.NoError(t, err)
	f.messenger.failFor("s1")

	require.NoError(t, f.lifecycle.Close(superAdmin))

	// Both carts are released even though s1's notice was undeliverable.
	assert.True(t, s1.Cart.IsEmpty())
	assert.True(t, s2.Cart.IsEmpty())
	assert.Equal(t, 10, f.store.products[0].Stock)
	assert.NotEmpty(t, f.messenger.texts("s2"))
}

func TestCloseResetsPendingInput(t *testing.T) {
	f := setup(t, gadget(10))
	sess := f.registry.Get("s1")
	sess.AwaitQuantity(1)
	sess.Delivery = session.DeliveryPavilion

	require.NoError(t, f.lifecycle.Close(superAdmin))

	assert.Equal(t, session.AwaitingNone, sess.Mode)
	assert.Equal(t, session.DeliveryUnset, sess.Delivery)
}

func TestCloseRequiresTheSuperAdmin(t *testing.T) {
	f := setup(t, gadget(10))
	f.registry.Get("s1")

	err := f.lifecycle.Close("s1")

	assert.ErrorIs(t, err, model.ErrNotAdmin)
	assert.True(t, f.lifecycle.IsOpen())
}

func TestOpenNotifiesWithoutRestoringCarts(t *testing.T) {
	f := setup(t, gadget(10))
	sess := f.registry.Get("s1")
	_, err := f.carts.Add(sess.Cart, 1, 4)
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.Close(superAdmin))

	require.NoError(t, f.lifecycle.Open(superAdmin))

	assert.True(t, f.lifecycle.IsOpen())
	// Close was destructive; reopening does not bring the cart back.
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, 10, f.store.products[0].Stock)

	notices := f.messenger.texts("s1")
	require.Len(t, notices, 2)
	assert.Contains(t, notices[1], "ORDER INTAKE IS OPEN")
}

func TestOpenRequiresTheSuperAdmin(t *testing.T) {
	f := setup(t)

	assert.ErrorIs(t, f.lifecycle.Open("someone"), model.ErrNotAdmin)
}

type mockCatalogStore struct {
	mu       sync.Mutex
	products []inventory.Product
}

func (m *mockCatalogStore) LoadAll() ([]inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]inventory.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *mockCatalogStore) SaveAll(products []inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = make([]inventory.Product, len(products))
	copy(m.products, products)
	return nil
}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

type sentMessage struct {
	SessionID string
	Text      string
}

type mockMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	deleted []uuid.UUID
	failing map[string]bool
}

func newMockMessenger() *mockMessenger {
	return &mockMessenger{failing: make(map[string]bool)}
}

func (m *mockMessenger) failFor(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[sessionID] = true
}

func (m *mockMessenger) Notify(sessionID, text string, _ model.Keyboard) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[sessionID] {
		return uuid.Nil, errors.New("delivery failed")
	}
	m.sent = append(m.sent, sentMessage{SessionID: sessionID, Text: text})
	return uuid.New(), nil
}

func (m *mockMessenger) DeleteMessage(_ string, handle uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, handle)
	return nil
}

func (m *mockMessenger) SendDocument(string, string) error { return nil }

func (m *mockMessenger) texts(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, msg := range m.sent {
		if msg.SessionID == sessionID {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}
