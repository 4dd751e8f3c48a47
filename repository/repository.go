package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salesapi/models"
)

// SQLRepository stores sales in a relational database. The same queries run
// against Postgres and SQLite; the dialect fills in the differences.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

func NewPostgresRepository(db *sql.DB) SQLRepository {
	return SQLRepository{db: db, dialect: postgresDialect}
}

func NewSQLiteRepository(db *sql.DB) SQLRepository {
	return SQLRepository{db: db, dialect: sqliteDialect}
}

// Dialect names the database the repository talks to.
func (r SQLRepository) Dialect() string {
	return r.dialect.name
}

// Migrate creates the sales table if it does not exist yet.
func (r SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.createTable); err != nil {
		return wrap("create sales table", err)
	}
	return nil
}

// ListSales returns every sale ordered by id, which is insertion order.
func (r SQLRepository) ListSales(ctx context.Context) ([]models.Sale, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT id, date, amount FROM sales ORDER BY id",
	)
	if err != nil {
		return nil, wrap("query sales", err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		var s models.Sale
		if err := rows.Scan(&s.ID, dateColumn{&s.Date}, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate sales", err)
	}
	return sales, nil
}

func (r SQLRepository) CreateSale(
	ctx context.Context,
	date time.Time,
	amount float64,
) (models.Sale, error) {
	date = models.Truncate(date)
	var id int
	err := r.db.QueryRowContext(
		ctx,
		r.dialect.rebind("INSERT INTO sales (date, amount) VALUES (?, ?) RETURNING id"),
		r.dialect.dateArg(date), amount,
	).Scan(&id)
	if err != nil {
		return models.Sale{}, wrap("insert sale", err)
	}
	return models.Sale{ID: id, Date: date, Amount: amount}, nil
}

// UpdateSale applies patch to the sale inside one transaction. Postgres locks
// the row; SQLite takes the write lock when the transaction begins.
func (r SQLRepository) UpdateSale(
	ctx context.Context,
	id int,
	patch models.SalePatch,
) (models.Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Sale{}, wrap("begin tx", err)
	}
	defer tx.Rollback()

	current := models.Sale{ID: id}
	err = tx.QueryRowContext(
		ctx,
		r.dialect.rebind("SELECT date, amount FROM sales WHERE id=?"+r.dialect.lockRow),
		id,
	).Scan(dateColumn{&current.Date}, &current.Amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Sale{}, ErrSaleNotFound
		}
		return models.Sale{}, wrap(fmt.Sprintf("select sale %d", id), err)
	}

	updated := current.Apply(patch)
	updated.Date = models.Truncate(updated.Date)

	_, err = tx.ExecContext(
		ctx,
		r.dialect.rebind("UPDATE sales SET date=?, amount=? WHERE id=?"),
		r.dialect.dateArg(updated.Date), updated.Amount, id,
	)
	if err != nil {
		return models.Sale{}, wrap(fmt.Sprintf("update sale %d", id), err)
	}
	if err := tx.Commit(); err != nil {
		return models.Sale{}, wrap("commit", err)
	}
	return updated, nil
}

func (r SQLRepository) DeleteSale(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM sales WHERE id=?"), id)
	if err != nil {
		return wrap(fmt.Sprintf("delete sale %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(fmt.Sprintf("delete sale %d", id), err)
	}
	if n == 0 {
		return ErrSaleNotFound
	}
	return nil
}

// dateColumn scans a DATE column whichever way the driver hands it over.
type dateColumn struct {
	t *time.Time
}

func (d dateColumn) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = models.Truncate(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
}

func (d dateColumn) parse(raw string) error {
	if len(raw) > len(models.DateLayout) {
		raw = raw[:len(models.DateLayout)]
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	*d.t = t
	return nil
}
