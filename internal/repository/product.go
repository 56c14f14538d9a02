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

var productSortFields = map[string]bool{
	"id":           true,
	"product_code": true,
	"name":         true,
	"category":     true,
	"price":        true,
	"created_at":   true,
	"updated_at":   true,
}

type ProductPatch struct {
	Name     *string
	Category *string
	Price    *int64
}

type ProductRepository struct {
	db  *sqlx.DB
	log *logrus.Entry
}

func NewProductRepository(db *sqlx.DB, log *logrus.Logger) *ProductRepository {
	return &ProductRepository{db: db, log: log.WithField("component", "product_repository")}
}

// List returns a page of products, searched by substring on name or category.
func (r *ProductRepository) List(ctx context.Context, p ListParams) ([]model.Product, Page, error) {
	p = p.Normalize()

	where := ""
	args := []interface{}{}
	if p.Search != "" {
		where = " WHERE name LIKE ? OR category LIKE ?"
		pattern := "%" + p.Search + "%"
		args = append(args, pattern, pattern)
	}

	orderBy, err := p.OrderBy(productSortFields, "created_at DESC")
	if err != nil {
		return nil, Page{}, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM products"+where), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "count products")
	}

	query := "SELECT * FROM products" + where + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset())

	products := []model.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "select products")
	}
	return products, p.PageOf(total), nil
}

func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*model.Product, error) {
	var p model.Product
	err := r.db.GetContext(ctx, &p, r.db.Rebind("SELECT * FROM products WHERE product_code = ?"), code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("product %s", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return &p, nil
}

// Create inserts a new product with a generated product_<n> business code.
func (r *ProductRepository) Create(ctx context.Context, name, category string, price int64) (*model.Product, error) {
	var created *model.Product
	var err error
	for attempt := 0; attempt < idAttempts; attempt++ {
		created, err = r.tryCreate(ctx, name, category, price)
		if err == nil || !database.IsDuplicateKey(err) {
			break
		}
		r.log.WithField("attempt", attempt+1).Warn("product code collision, retrying")
	}
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"product_code": created.ProductCode, "name": created.Name}).Info("product created")
	return created, nil
}

func (r *ProductRepository) tryCreate(ctx context.Context, name, category string, price int64) (*model.Product, error) {
	now := time.Now().UTC()
	p := model.Product{
		Name:      name,
		Category:  category,
		Price:     price,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := database.WithinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		next, err := nextBusinessNumber(ctx, tx, "products")
		if err != nil {
			return err
		}
		p.ProductCode = fmt.Sprintf("product_%d", next)

		id, err := database.InsertID(ctx, tx,
			"INSERT INTO products (product_code, name, category, price, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.ProductCode, p.Name, p.Category, p.Price, p.Active, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) Update(ctx context.Context, code string, patch ProductPatch) (*model.Product, error) {
	p, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE products SET name = ?, category = ?, price = ?, updated_at = ? WHERE id = ?"),
		p.Name, p.Category, p.Price, p.UpdatedAt, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	r.log.WithField("product_code", code).Info("product updated")
	return p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM products WHERE product_code = ?"), code)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if affected == 0 {
		return apperror.NotFoundf("product %s", code)
	}
	r.log.WithField("product_code", code).Info("product deleted")
	return nil
}
