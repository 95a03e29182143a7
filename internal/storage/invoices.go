package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/money"
)

// ErrNotFound is returned when an invoice id does not exist
var ErrNotFound = sql.ErrNoRows

// Summary is one row of the saved-invoices listing
type Summary struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository persists invoice snapshots
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates an invoice repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Save stores a full invoice snapshot for an owner and returns its id
func (r *Repository) Save(ctx context.Context, state invoice.State, ownerID string) (int64, error) {
	var invoiceID int64
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (
				owner_id, invoice_number, po_number, invoice_date, due_date,
				company_name, company_address, company_logo,
				client_name, client_address, client_email,
				currency, template, notes, bank_details, status,
				tax_rate, other_tax, shipping, discount_value, discount_type,
				show_subtotal, show_tax, show_shipping, show_discount,
				subtotal, sales_tax, discount_amount, total
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ownerID, state.InvoiceNumber, state.PONumber, state.InvoiceDate, state.DueDate,
			state.CompanyName, state.CompanyAddress, state.CompanyLogo,
			state.ClientName, state.ClientAddress, state.ClientEmail,
			state.Currency, string(state.Template), state.Notes, state.BankDetails, string(state.Status),
			state.Rates.TaxRatePercent.String(), state.Rates.OtherTaxAmount.String(),
			state.Rates.ShippingAmount.String(), state.Rates.DiscountValue.String(), string(state.Rates.DiscountType),
			boolToInt(state.Rates.ShowSubtotal), boolToInt(state.Rates.ShowTax),
			boolToInt(state.Rates.ShowShipping), boolToInt(state.Rates.ShowDiscount),
			state.Totals.Subtotal.String(), state.Totals.SalesTax.String(),
			state.Totals.DiscountAmount.String(), state.Totals.Total.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		invoiceID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read invoice id: %w", err)
		}

		for i, item := range state.LineItems {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO line_items (invoice_id, item_id, description, quantity, unit_price, amount, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				invoiceID, item.ID, item.Description,
				item.Quantity.String(), item.UnitPrice.String(), item.Amount.String(), i,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("invoice saved",
		zap.Int64("invoice_id", invoiceID),
		zap.String("invoice_number", state.InvoiceNumber),
		zap.String("owner_id", ownerID))
	return invoiceID, nil
}

// Load retrieves a stored invoice snapshot by id
func (r *Repository) Load(ctx context.Context, id int64) (invoice.State, error) {
	var (
		state    invoice.State
		template string
		status   string
		discount string
		taxRate, otherTax, shipping, discountValue       string
		subtotal, salesTax, discountAmount, total        string
		showSubtotal, showTax, showShipping, showDiscount int
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT invoice_number, po_number, invoice_date, due_date,
		       company_name, company_address, company_logo,
		       client_name, client_address, client_email,
		       currency, template, notes, bank_details, status,
		       tax_rate, other_tax, shipping, discount_value, discount_type,
		       show_subtotal, show_tax, show_shipping, show_discount,
		       subtotal, sales_tax, discount_amount, total
		FROM invoices WHERE id = ?`, id).Scan(
		&state.InvoiceNumber, &state.PONumber, &state.InvoiceDate, &state.DueDate,
		&state.CompanyName, &state.CompanyAddress, &state.CompanyLogo,
		&state.ClientName, &state.ClientAddress, &state.ClientEmail,
		&state.Currency, &template, &state.Notes, &state.BankDetails, &status,
		&taxRate, &otherTax, &shipping, &discountValue, &discount,
		&showSubtotal, &showTax, &showShipping, &showDiscount,
		&subtotal, &salesTax, &discountAmount, &total,
	)
	if err != nil {
		return invoice.State{}, err
	}

	state.Template = invoice.Template(template)
	state.Status = invoice.Status(status)
	state.Rates = invoice.RateSettings{
		TaxRatePercent: money.MustFromString(taxRate),
		OtherTaxAmount: money.MustFromString(otherTax),
		ShippingAmount: money.MustFromString(shipping),
		DiscountValue:  money.MustFromString(discountValue),
		DiscountType:   invoice.DiscountType(discount),
		ShowSubtotal:   showSubtotal != 0,
		ShowTax:        showTax != 0,
		ShowShipping:   showShipping != 0,
		ShowDiscount:   showDiscount != 0,
	}
	state.Totals = invoice.Totals{
		Subtotal:       money.MustFromString(subtotal),
		SalesTax:       money.MustFromString(salesTax),
		DiscountAmount: money.MustFromString(discountAmount),
		Total:          money.MustFromString(total),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, description, quantity, unit_price, amount
		FROM line_items WHERE invoice_id = ? ORDER BY sort_order`, id)
	if err != nil {
		return invoice.State{}, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	state.LineItems = []invoice.LineItem{}
	for rows.Next() {
		var item invoice.LineItem
		var qty, price, amount string
		if err := rows.Scan(&item.ID, &item.Description, &qty, &price, &amount); err != nil {
			return invoice.State{}, fmt.Errorf("failed to scan line item: %w", err)
		}
		item.Quantity = money.MustFromString(qty)
		item.UnitPrice = money.MustFromString(price)
		item.Amount = money.MustFromString(amount)
		state.LineItems = append(state.LineItems, item)
	}
	if err := rows.Err(); err != nil {
		return invoice.State{}, err
	}

	return state, nil
}

// List returns summaries of an owner's saved invoices, newest first
func (r *Repository) List(ctx context.Context, ownerID string) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoice_number, client_name, status, total, currency, created_at
		FROM invoices WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.InvoiceNumber, &s.ClientName, &s.Status, &s.Total, &s.Currency, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// UpdateStatus flips the lifecycle status of a stored invoice
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status invoice.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDealID records the CRM deal associated with a stored invoice
func (r *Repository) SetDealID(ctx context.Context, id int64, dealID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET deal_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		dealID, id)
	if err != nil {
		return fmt.Errorf("failed to set deal id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
