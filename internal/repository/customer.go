package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/database"
	"sales-record-api/internal/model"
)

// idAttempts bounds the retry loop around business-id generation. The id is
// max(pk)+1 computed inside the insert transaction; the unique constraint on
// the business-id column catches the race between concurrent creators.
const idAttempts = 3

var customerSortFields = map[string]bool{
	"id":          true,
	"id_customer": true,
	"name":        true,
	"address":     true,
	"gender":      true,
	"created_at":  true,
	"updated_at":  true,
}

// CustomerPatch carries the optional fields of a customer update; nil means
// leave unchanged.
type CustomerPatch struct {
	Name    *string
	Address *string
	Gender  *string
}

type CustomerRepository struct {
	db  *sqlx.DB
	log *logrus.Entry
}

func NewCustomerRepository(db *sqlx.DB, log *logrus.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, log: log.WithField("component", "customer_repository")}
}

// List returns a page of customers, searched by substring on name or address.
func (r *CustomerRepository) List(ctx context.Context, p ListParams) ([]model.Customer, Page, error) {
	p = p.Normalize()

	where := ""
	args := []interface{}{}
	if p.Search != "" {
		where = " WHERE name LIKE ? OR address LIKE ?"
		pattern := "%" + p.Search + "%"
		args = append(args, pattern, pattern)
	}

	orderBy, err := p.OrderBy(customerSortFields, "created_at DESC")
	if err != nil {
		return nil, Page{}, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM customers"+where), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "count customers")
	}

	query := "SELECT * FROM customers" + where + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset())

	customers := []model.Customer{}
	if err := r.db.SelectContext(ctx, &customers, r.db.Rebind(query), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "select customers")
	}
	return customers, p.PageOf(total), nil
}

// SimpleList returns id, business id and name only, filtered by name
// substring, without pagination.
func (r *CustomerRepository) SimpleList(ctx context.Context, search string) ([]model.CustomerSummary, error) {
	query := "SELECT id, id_customer, name FROM customers"
	args := []interface{}{}
	if search != "" {
		query += " WHERE name LIKE ?"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY name ASC"

	summaries := []model.CustomerSummary{}
	if err := r.db.SelectContext(ctx, &summaries, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select customer summaries")
	}
	return summaries, nil
}

func (r *CustomerRepository) GetByCode(ctx context.Context, code string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, r.db.Rebind("SELECT * FROM customers WHERE id_customer = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("customer %s", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select customer")
	}
	return &c, nil
}

// Create inserts a new customer with a generated customer_<n> business id.
// Active is always true on creation.
func (r *CustomerRepository) Create(ctx context.Context, name, address, gender string) (*model.Customer, error) {
	var created *model.Customer
	var err error
	for attempt := 0; attempt < idAttempts; attempt++ {
		created, err = r.tryCreate(ctx, name, address, gender)
		if err == nil || !database.IsDuplicateKey(err) {
			break
		}
		r.log.WithField("attempt", attempt+1).Warn("customer id collision, retrying")
	}
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"id_customer": created.IDCustomer, "name": created.Name}).Info("customer created")
	return created, nil
}

func (r *CustomerRepository) tryCreate(ctx context.Context, name, address, gender string) (*model.Customer, error) {
	now := time.Now().UTC()
	c := model.Customer{
		Name:      name,
		Address:   address,
		Gender:    gender,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := database.WithinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		next, err := nextBusinessNumber(ctx, tx, "customers")
		if err != nil {
			return err
		}
		c.IDCustomer = fmt.Sprintf("customer_%d", next)

		id, err := database.InsertID(ctx, tx,
			"INSERT INTO customers (id_customer, name, address, gender, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			c.IDCustomer, c.Name, c.Address, c.Gender, c.Active, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Update(ctx context.Context, code string, patch CustomerPatch) (*model.Customer, error) {
	c, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.Gender != nil {
		c.Gender = *patch.Gender
	}
	c.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE customers SET name = ?, address = ?, gender = ?, updated_at = ? WHERE id = ?"),
		c.Name, c.Address, c.Gender, c.UpdatedAt, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "update customer")
	}
	r.log.WithField("id_customer", code).Info("customer updated")
	return c, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM customers WHERE id_customer = ?"), code)
	if err != nil {
		return errors.Wrap(err, "delete customer")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete customer")
	}
	if affected == 0 {
		return apperror.NotFoundf("customer %s", code)
	}
	r.log.WithField("id_customer", code).Info("customer deleted")
	return nil
}

// nextBusinessNumber computes max(id)+1 for the table inside the caller's
// transaction. Callers must hold a unique constraint on the business-id
// column and retry on IsDuplicateKey.
func nextBusinessNumber(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	var next int64
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table); err != nil {
		return 0, errors.Wrapf(err, "next business number for %s", table)
	}
	return next, nil
}
