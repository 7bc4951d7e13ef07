package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/inventory/domain/model"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	store := NewJSONStore(path)

	products := []model.Product{
		{ID: 1, Name: "Widget", Category: "Widgets", PriceCents: 10000, Stock: 5},
		{ID: 2, Name: "Gadget", Category: "Gadgets", PriceCents: 25000, Stock: 0},
	}
	require.NoError(t, store.SaveAll(products))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, products, loaded)
}

func TestJSONStoreMissingFileReadsAsEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "absent.json"))

	loaded, err := store.LoadAll()

	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestJSONStoreRejectsMalformedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0666))

	_, err := NewJSONStore(path).LoadAll()

	assert.Error(t, err)
}

func TestJSONImporter(t *testing.T) {
	t.Run("Parses the store schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "upload.json")
		payload := `{"products":[{"id":7,"name":"Drone","category":"Drones","price_cents":90000,"stock":3}]}`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0666))

		products, err := JSONImporter{}.ParseFile(path)

		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, model.Product{ID: 7, Name: "Drone", Category: "Drones", PriceCents: 90000, Stock: 3}, products[0])
	})

	t.Run("Reports unreadable files", func(t *testing.T) {
		_, err := JSONImporter{}.ParseFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
