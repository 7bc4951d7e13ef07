package service

import (
	"errors"
	"sort"
	"sync"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/inventory/domain/model"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
)

// LedgerService is the authoritative view of stock. Every mutation is a
// full load-validate-mutate-save cycle against the catalog store, executed
// under a single lock so two sessions cannot race on the same row.
type LedgerService interface {
	Reserve(productID int64, quantity int) (model.Product, error)
	Release(productID int64, quantity int) error
	Adjust(productID int64, oldQuantity, newQuantity int) (model.Product, error)

	Find(productID int64) (model.Product, error)
	Products() ([]model.Product, error)
	Categories() ([]string, error)
	ProductsByCategory(category string) ([]model.Product, error)
	ReplaceCatalog(products []model.Product) error
}

func NewLedgerService(store model.CatalogStore, dispatcher domain.EventDispatcher) LedgerService {
	return &ledgerService{store: store, dispatcher: dispatcher}
}

type ledgerService struct {
	mu         sync.Mutex
	store      model.CatalogStore
	dispatcher domain.EventDispatcher
}

func (s *ledgerService) Reserve(productID int64, quantity int) (model.Product, error) {
	if quantity <= 0 {
		return model.Product{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return model.Product{}, err
	}

	i := indexOf(products, productID)
	if i < 0 {
		return model.Product{}, model.ErrProductNotFound
	}
	if quantity > products[i].Stock {
		return model.Product{}, &model.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: products[i].Stock,
		}
	}

	products[i].Stock -= quantity
	if err := s.save(products); err != nil {
		return model.Product{}, err
	}

	s.dispatch(model.StockReserved{ProductID: productID, Quantity: quantity, Remaining: products[i].Stock})
	return products[i], nil
}

func (s *ledgerService) Release(productID int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return err
	}

	i := indexOf(products, productID)
	if i < 0 {
		// The product may have been removed from the catalog while units
		// were reserved. The units are unreturnable; skip without failing
		// so a larger release batch keeps going.
		log.WithFields(log.Fields{"productID": productID, "quantity": quantity}).
			Warn("release skipped: product no longer in catalog")
		return nil
	}

	products[i].Stock += quantity
	if err := s.save(products); err != nil {
		return err
	}

	s.dispatch(model.StockReleased{ProductID: productID, Quantity: quantity, Remaining: products[i].Stock})
	return nil
}

func (s *ledgerService) Adjust(productID int64, oldQuantity, newQuantity int) (model.Product, error) {
	if oldQuantity < 0 || newQuantity < 0 {
		return model.Product{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return model.Product{}, err
	}

	i := indexOf(products, productID)
	if i < 0 {
		return model.Product{}, model.ErrProductNotFound
	}

	available := products[i].Stock + oldQuantity
	if newQuantity > available {
		return model.Product{}, &model.InsufficientStockError{
			ProductID: productID,
			Requested: newQuantity,
			Available: available,
		}
	}

	products[i].Stock = available - newQuantity
	if err := s.save(products); err != nil {
		return model.Product{}, err
	}

	s.dispatch(model.StockAdjusted{
		ProductID:   productID,
		OldQuantity: oldQuantity,
		NewQuantity: newQuantity,
		Remaining:   products[i].Stock,
	})
	return products[i], nil
}

func (s *ledgerService) Find(productID int64) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return model.Product{}, err
	}
	i := indexOf(products, productID)
	if i < 0 {
		return model.Product{}, model.ErrProductNotFound
	}
	return products[i], nil
}

func (s *ledgerService) Products() ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Categories lists the distinct categories that still have orderable stock.
func (s *ledgerService) Categories() ([]string, error) {
	products, err := s.Products()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *ledgerService) ProductsByCategory(category string) ([]model.Product, error) {
	products, err := s.Products()
	if err != nil {
		return nil, err
	}

	var result []model.Product
	for _, p := range products {
		if p.Category == category && p.Stock > 0 {
			result = append(result, p)
		}
	}
	return result, nil
}

// ReplaceCatalog swaps the whole product table for a freshly uploaded one.
// Reservations held against the old table are not migrated.
func (s *ledgerService) ReplaceCatalog(products []model.Product) error {
	seen := make(map[int64]struct{}, len(products))
	for _, p := range products {
		if p.Stock < 0 || p.PriceCents < 0 {
			return model.ErrInvalidCatalog
		}
		if _, ok := seen[p.ID]; ok {
			return model.ErrInvalidCatalog
		}
		seen[p.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(products); err != nil {
		return err
	}
	s.dispatch(model.CatalogReplaced{Products: len(products)})
	return nil
}

func (s *ledgerService) load() ([]model.Product, error) {
	products, err := s.store.LoadAll()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load catalog")
	}
	return products, nil
}

func (s *ledgerService) save(products []model.Product) error {
	if err := s.store.SaveAll(products); err != nil {
		return pkgerrors.Wrap(err, "save catalog")
	}
	return nil
}

func (s *ledgerService) dispatch(event domain.Event) {
	if err := s.dispatcher.Dispatch(event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}

func indexOf(products []model.Product, productID int64) int {
	for i := range products {
		if products[i].ID == productID {
			return i
		}
	}
	return -1
}
