package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/database"
	"sales-record-api/internal/model"
	"sales-record-api/internal/repository"
)

// billIDAttempts bounds retries of the create transaction when two writers
// race to the same bill_<n>; the unique constraint on bill_id surfaces the
// loser as a duplicate-key error.
const billIDAttempts = 3

// LineInput is one (product, quantity) entry of an incoming order.
type LineInput struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	Date       model.Date
	CustomerID int64
	Lines      []LineInput
}

// UpdateOrderInput is a partial order patch; nil fields are left unchanged.
// A nil Lines slice leaves the stored lines untouched.
type UpdateOrderInput struct {
	BillID     *string
	Date       *model.Date
	Subtotal   *int64
	CustomerID *int64
	Lines      []LineInput
}

// OrderService keeps a transaction and its line items consistent: it writes
// them as one unit, derives the subtotal at write time and owns bill_id
// generation.
type OrderService struct {
	store Store
	log   *logrus.Entry
}

func NewOrderService(store Store, log *logrus.Logger) *OrderService {
	return &OrderService{store: store, log: log.WithField("component", "order_service")}
}

// CreateOrder persists a new transaction together with one line per input
// entry. The subtotal is the sum of price*quantity over the lines, using the
// product prices read inside the same database transaction. Nothing is
// written if any referenced customer or product fails to resolve.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Transaction, error) {
	if in.Date.IsZero() {
		return nil, apperror.Validationf("date is required")
	}
	if err := validateLineInputs(in.Lines, true); err != nil {
		return nil, err
	}

	var created *model.Transaction
	var err error
	for attempt := 0; attempt < billIDAttempts; attempt++ {
		created, err = s.tryCreateOrder(ctx, in)
		if err == nil || !database.IsDuplicateKey(err) {
			break
		}
		s.log.WithField("attempt", attempt+1).Warn("bill id collision, retrying")
	}
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"bill_id":  created.BillID,
		"subtotal": created.Subtotal,
		"lines":    len(in.Lines),
	}).Info("order created")
	return created, nil
}

func (s *OrderService) tryCreateOrder(ctx context.Context, in CreateOrderInput) (*model.Transaction, error) {
	var created *model.Transaction
	err := s.store.Transact(ctx, func(tx Tx) error {
		if err := s.checkCustomer(ctx, tx, in.CustomerID); err != nil {
			return err
		}

		var subtotal int64
		for _, line := range in.Lines {
			product, err := s.resolveProduct(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.Active {
				return apperror.Validationf("product %s is not active", product.ProductCode)
			}
			subtotal += product.Price * int64(line.Quantity)
		}

		next, err := tx.NextBillNumber(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		txn := &model.Transaction{
			BillID:     fmt.Sprintf("bill_%d", next),
			Date:       in.Date,
			Subtotal:   subtotal,
			CustomerID: in.CustomerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		for _, line := range in.Lines {
			l := &model.TransactionLine{
				TransactionID: txn.ID,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
			}
			if err := tx.UpsertLine(ctx, l); err != nil {
				return err
			}
		}

		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOrder applies a partial patch to a transaction. Supplied lines are
// merged by product: an existing (transaction, product) pair gets its
// quantity overwritten, a new pair is inserted, and stored lines absent from
// the patch are left alone. The subtotal is only changed when the caller
// supplies one explicitly.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, in UpdateOrderInput) (*model.Transaction, error) {
	if err := validateLineInputs(in.Lines, false); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	err := s.store.Transact(ctx, func(tx Tx) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		// bill_id is assigned once at creation and never changes
		if in.BillID != nil && *in.BillID != txn.BillID {
			return apperror.Validationf("bill_id cannot be changed")
		}
		if in.Date != nil {
			txn.Date = *in.Date
		}
		if in.Subtotal != nil {
			txn.Subtotal = *in.Subtotal
		}
		if in.CustomerID != nil {
			if err := s.checkCustomer(ctx, tx, *in.CustomerID); err != nil {
				return err
			}
			txn.CustomerID = *in.CustomerID
		}

		for _, line := range in.Lines {
			if _, err := s.resolveProduct(ctx, tx, line.ProductID); err != nil {
				return err
			}
		}

		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}

		for _, line := range in.Lines {
			l := &model.TransactionLine{
				TransactionID: txn.ID,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
			}
			if err := tx.UpsertLine(ctx, l); err != nil {
				return err
			}
		}

		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("transaction_id", id).Info("order updated")
	return updated, nil
}

// DeleteOrder removes a transaction and all of its lines atomically.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	err := s.store.Transact(ctx, func(tx Tx) error {
		if _, err := tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithField("transaction_id", id).Info("order deleted")
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*model.OrderAggregate, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, p repository.ListParams) ([]model.OrderAggregate, repository.Page, error) {
	return s.store.ListOrders(ctx, p)
}

func (s *OrderService) checkCustomer(ctx context.Context, tx Tx, customerID int64) error {
	exists, err := tx.CustomerExists(ctx, customerID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.Validationf("customer %d does not exist", customerID)
	}
	return nil
}

// resolveProduct turns a missing product into a validation failure: a line
// referencing a nonexistent product is bad input, not a missing resource.
func (s *OrderService) resolveProduct(ctx context.Context, tx Tx, productID int64) (*model.Product, error) {
	product, err := tx.ProductByID(ctx, productID)
	if apperror.IsNotFound(err) {
		return nil, apperror.Validationf("product %d does not exist", productID)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// validateLineInputs checks shape only; product existence is checked inside
// the write transaction. requireNonEmpty distinguishes create from update,
// where an absent lines slice is a valid no-op.
func validateLineInputs(lines []LineInput, requireNonEmpty bool) error {
	if requireNonEmpty && len(lines) == 0 {
		return apperror.Validationf("at least one product line is required")
	}
	seen := make(map[int64]bool, len(lines))
	for i, line := range lines {
		if line.ProductID <= 0 {
			return apperror.Validationf("line %d: product_id is required", i+1)
		}
		if line.Quantity < 1 {
			return apperror.Validationf("line %d: quantity must be at least 1", i+1)
		}
		if seen[line.ProductID] {
			return apperror.Validationf("line %d: duplicate product %d", i+1, line.ProductID)
		}
		seen[line.ProductID] = true
	}
	return nil
}
