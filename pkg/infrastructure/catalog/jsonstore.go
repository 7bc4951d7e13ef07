package catalog

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"storefront/pkg/inventory/domain/model"
)

type productRow struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type catalogJSON struct {
	Products []productRow `json:"products"`
}

// JSONStore keeps the whole product table in one JSON file. A missing file
// reads as an empty catalog so a fresh deployment starts clean.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) LoadAll() ([]model.Product, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read catalog file %s", s.path)
	}
	return decodeCatalog(raw)
}

func (s *JSONStore) SaveAll(products []model.Product) error {
	data := catalogJSON{Products: make([]productRow, 0, len(products))}
	for _, p := range products {
		data.Products = append(data.Products, productRow(p))
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	if err := os.WriteFile(s.path, raw, 0666); err != nil {
		return errors.Wrapf(err, "write catalog file %s", s.path)
	}
	return nil
}

// JSONImporter parses an uploaded catalog document. Uploads use the same
// schema as the JSON store regardless of which store backs the ledger.
type JSONImporter struct{}

func (JSONImporter) ParseFile(fileHandle string) ([]model.Product, error) {
	raw, err := os.ReadFile(fileHandle)
	if err != nil {
		return nil, errors.Wrapf(err, "read uploaded catalog %s", fileHandle)
	}
	return decodeCatalog(raw)
}

func decodeCatalog(raw []byte) ([]model.Product, error) {
	var data catalogJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	products := make([]model.Product, 0, len(data.Products))
	for _, row := range data.Products {
		products = append(products, model.Product(row))
	}
	return products, nil
}
