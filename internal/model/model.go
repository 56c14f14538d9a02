package model

import "time"

// Customer is a row in the customers table. IDCustomer is the externally
// visible business id (customer_<n>); ID is the surrogate key.
type Customer struct {
	ID         int64     `db:"id" json:"id"`
	IDCustomer string    `db:"id_customer" json:"id_customer"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	Gender     string    `db:"gender" json:"gender"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Product is a row in the products table. Price is in the minor currency
// unit, so it stays an integer end to end.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	ProductCode string    `db:"product_code" json:"product_code"`
	Name        string    `db:"name" json:"name"`
	Category    string    `db:"category" json:"category"`
	Price       int64     `db:"price" json:"price"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is a sales order header. Subtotal is derived at write time
// from the line items and is never recomputed on read.
type Transaction struct {
	ID         int64     `db:"id" json:"id"`
	BillID     string    `db:"bill_id" json:"bill_id"`
	Date       Date      `db:"date" json:"date"`
	Subtotal   int64     `db:"subtotal" json:"subtotal"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TransactionLine joins a transaction to one product with a quantity.
// (transaction_id, product_id) is unique.
type TransactionLine struct {
	ID            int64 `db:"id" json:"id"`
	TransactionID int64 `db:"transaction_id" json:"transaction_id"`
	ProductID     int64 `db:"product_id" json:"product_id"`
	Quantity      int   `db:"quantity" json:"quantity"`
}

// CustomerSummary is the nested customer shape returned inside order
// aggregates and the simple customer list.
type CustomerSummary struct {
	ID         int64  `db:"id" json:"id"`
	IDCustomer string `db:"id_customer" json:"id_customer"`
	Name       string `db:"name" json:"name"`
}

type ProductSummary struct {
	ID          int64  `db:"id" json:"id"`
	ProductCode string `db:"product_code" json:"product_code"`
	Name        string `db:"name" json:"name"`
	Category    string `db:"category" json:"category"`
}

// LineItem is a transaction line expanded with its product summary.
type LineItem struct {
	TransactionLine
	Product ProductSummary `json:"product"`
}

// OrderAggregate is a transaction with its customer summary and expanded
// line items, as returned by the read endpoints.
type OrderAggregate struct {
	Transaction
	Customer CustomerSummary `json:"customer"`
	Lines    []LineItem      `json:"lines"`
}
