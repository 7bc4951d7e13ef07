package catalog

import (
	"embed"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/inventory/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQLStore keeps the product table in MySQL. SaveAll replaces the whole
// table inside one transaction, matching the full-load/full-save contract
// the ledger relies on.
type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

type productRecord struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Category   string `db:"category"`
	PriceCents int64  `db:"price_cents"`
	Stock      int    `db:"stock"`
}

func (s *MySQLStore) LoadAll() ([]model.Product, error) {
	var records []productRecord
	err := s.db.Select(&records, "SELECT id, name, category, price_cents, stock FROM products ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}

	products := make([]model.Product, 0, len(records))
	for _, r := range records {
		products = append(products, model.Product(r))
	}
	return products, nil
}

func (s *MySQLStore) SaveAll(products []model.Product) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM products"); err != nil {
		return errors.Wrap(err, "clear products")
	}
	for _, p := range products {
		_, err := tx.NamedExec(
			"INSERT INTO products (id, name, category, price_cents, stock) VALUES (:id, :name, :category, :price_cents, :stock)",
			productRecord(p),
		)
		if err != nil {
			return errors.Wrapf(err, "insert product %d", p.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// Migrate brings the products schema up to date.
func Migrate(dsn string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, "mysql://"+dsn)
	if err != nil {
		return errors.Wrap(err, "init migrations")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
