package tests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"storefront/pkg/session/domain/model"
)

func TestAwaitingModesAreExclusive(t *testing.T) {
	sess := model.NewSession("s1")

	sess.AwaitQuantity(7)
	assert.Equal(t, model.AwaitingQuantity, sess.Mode)
	assert.Equal(t, int64(7), sess.PendingProduct)

	// Arming another mode replaces the previous one and its selection.
	sess.AwaitQuantityChange(9)
	assert.Equal(t, model.AwaitingQuantityChange, sess.Mode)
	assert.Equal(t, int64(9), sess.PendingItem)
	assert.Zero(t, sess.PendingProduct)

	sess.AwaitPavilionNumber()
	assert.Equal(t, model.AwaitingPavilionNumber, sess.Mode)
	assert.Zero(t, sess.PendingItem)
}

func TestCancelInputClearsModeAndSelection(t *testing.T) {
	sess := model.NewSession("s1")
	sess.AwaitQuantity(7)

	sess.CancelInput()

	assert.Equal(t, model.AwaitingNone, sess.Mode)
	assert.Zero(t, sess.PendingProduct)
	assert.Zero(t, sess.PendingItem)
}

func TestMessageHistory(t *testing.T) {
	sess := model.NewSession("s1")
	first := uuid.New()
	second := uuid.New()
	sess.RecordMessage(first)
	sess.RecordMessage(second)
	assert.Len(t, sess.Messages, 2)

	keeper := uuid.New()
	sess.RetainOnly(keeper)
	assert.Equal(t, []uuid.UUID{keeper}, sess.Messages)

	sess.ClearMessages()
	assert.Empty(t, sess.Messages)
}

func TestRegistryCreatesOnFirstUse(t *testing.T) {
	registry := model.NewRegistry()

	sess := registry.Get("s1")
	assert.Same(t, sess, registry.Get("s1"))
	assert.NotNil(t, sess.Cart)
	assert.Equal(t, 1, registry.Len())

	registry.Get("s2")
	assert.Len(t, registry.All(), 2)
}
