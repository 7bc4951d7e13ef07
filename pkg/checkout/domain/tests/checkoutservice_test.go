package tests

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartservice "storefront/pkg/cart/domain/service"
	checkoutmodel "storefront/pkg/checkout/domain/model"
	checkoutservice "storefront/pkg/checkout/domain/service"
	"storefront/pkg/common/domain"
	inventory "storefront/pkg/inventory/domain/model"
	ledgerservice "storefront/pkg/inventory/domain/service"
	session "storefront/pkg/session/domain/model"
	storefrontmodel "storefront/pkg/storefront/domain/model"
	storefrontservice "storefront/pkg/storefront/domain/service"
)

const superAdmin = "100"

type fixture struct {
	checkout  checkoutservice.CheckoutService
	carts     cartservice.CartService
	store     *mockCatalogStore
	messenger *mockMessenger
}

func setup(t *testing.T, products ...inventory.Product) *fixture {
	t.Helper()
	store := &mockCatalogStore{products: products}
	dispatcher := &mockEventDispatcher{}
	messenger := newMockMessenger()

	ledger := ledgerservice.NewLedgerService(store, dispatcher)
	carts := cartservice.NewCartService(ledger, dispatcher)
	roster := storefrontservice.NewRosterService(storefrontmodel.NewRoster(superAdmin), dispatcher)
	checkout := checkoutservice.NewCheckoutService(carts, roster, messenger, dispatcher)

	return &fixture{checkout: checkout, carts: carts, store: store, messenger: messenger}
}

func widget(stock int) inventory.Product {
	return inventory.Product{ID: 1, Name: "Widget", Category: "Widgets", PriceCents: 10000, Stock: stock}
}

func TestPickupFinalizesImmediately(t *testing.T) {
	f := setup(t, widget(10))
	sess := session.NewSession("s1")
	_, err := f.carts.Add(sess.Cart, 1, 2)
	require.NoError(t, err)

	summary, err := f.checkout.SelectDelivery(sess, session.DeliveryPickup)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(20000), summary.TotalCents)
	assert.Equal(t, session.DeliveryPickup, summary.Delivery)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "Widget", summary.Lines[0].Name)
	assert.Equal(t, 2, summary.Lines[0].Quantity)

	// The order consumed the reservation: cart empty, stock still debited.
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, 8, f.store.products[0].Stock)
	assert.Equal(t, session.DeliveryUnset, sess.Delivery)

	adminCopies := f.messenger.texts(superAdmin)
	require.Len(t, adminCopies, 1)
	assert.Contains(t, adminCopies[0], "New order from session s1")
	assert.Contains(t, adminCopies[0], "Total: 200")
}

func TestPavilionDefersFinalization(t *testing.T) {
	f := setup(t, widget(10))
	sess := session.NewSession("s1")
	_, err := f.carts.Add(sess.Cart, 1, 1)
	require.NoError(t, err)

	summary, err := f.checkout.SelectDelivery(sess, session.DeliveryPavilion)

	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, session.AwaitingPavilionNumber, sess.Mode)
	assert.Equal(t, session.DeliveryPavilion, sess.Delivery)
	assert.False(t, sess.Cart.IsEmpty())

	summary, err = f.checkout.CapturePavilion(sess, "12B")

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "12B", summary.Pavilion)
	assert.Contains(t, summary.Render(), "Pavilion number: 12B")
	assert.Equal(t, session.AwaitingNone, sess.Mode)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestFinalizeGuards(t *testing.T) {
	t.Run("Fail without a delivery method", func(t *testing.T) {
		f := setup(t, widget(10))
		sess := session.NewSession("s1")
		_, err := f.carts.Add(sess.Cart, 1, 1)
		require.NoError(t, err)

		_, err = f.checkout.Finalize(sess)

		assert.ErrorIs(t, err, checkoutmodel.ErrIncompleteOrder)
		assert.False(t, sess.Cart.IsEmpty())
	})

	t.Run("Fail on an empty cart", func(t *testing.T) {
		f := setup(t, widget(10))
		sess := session.NewSession("s1")

		_, err := f.checkout.SelectDelivery(sess, session.DeliveryPickup)

		assert.ErrorIs(t, err, checkoutmodel.ErrEmptyOrder)
	})
}

func TestAdminBuyerAlsoReceivesTheOrderCopy(t *testing.T) {
	f := setup(t, widget(10))
	sess := session.NewSession(superAdmin)
	_, err := f.carts.Add(sess.Cart, 1, 1)
	require.NoError(t, err)

	summary, err := f.checkout.SelectDelivery(sess, session.DeliveryPickup)

	require.NoError(t, err)
	require.NotNil(t, summary)

	// Thank-you, the summary, and the copy every admin gets.
	texts := f.messenger.texts(superAdmin)
	require.Len(t, texts, 3)
	assert.Contains(t, texts[2], "New order from session "+superAdmin)
}

func TestAdminNotificationFailureIsNotFatal(t *testing.T) {
	f := setup(t, widget(10))
	f.messenger.failFor(superAdmin)
	sess := session.NewSession("s1")
	_, err := f.carts.Add(sess.Cart, 1, 2)
	require.NoError(t, err)

	summary, err := f.checkout.SelectDelivery(sess, session.DeliveryPickup)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1 500", checkoutmodel.FormatPrice(150000))
	assert.Equal(t, "200", checkoutmodel.FormatPrice(20000))
	assert.Equal(t, "1 000 000", checkoutmodel.FormatPrice(100000000))
	assert.Equal(t, "123.45", checkoutmodel.FormatPrice(12345))
	assert.Equal(t, "0", checkoutmodel.FormatPrice(0))
}

type mockCatalogStore struct {
	products []inventory.Product
}

func (m *mockCatalogStore) LoadAll() ([]inventory.Product, error) {
	out := make([]inventory.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *mockCatalogStore) SaveAll(products []inventory.Product) error {
	m.products = make([]inventory.Product, len(products))
	copy(m.products, products)
	return nil
}

type mockEventDispatcher struct {
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}

type sentMessage struct {
	SessionID string
	Text      string
	Keyboard  storefrontmodel.Keyboard
}

type mockMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
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

func (m *mockMessenger) Notify(sessionID, text string, keyboard storefrontmodel.Keyboard) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[sessionID] {
		return uuid.Nil, errors.New("delivery failed")
	}
	m.sent = append(m.sent, sentMessage{SessionID: sessionID, Text: text, Keyboard: keyboard})
	return uuid.New(), nil
}

func (m *mockMessenger) DeleteMessage(string, uuid.UUID) error { return nil }

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
