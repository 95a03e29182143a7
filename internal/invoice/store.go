package invoice

import (
	"fmt"
	"sync"

	"github.com/rezonia/invoice-builder/internal/money"
)

// Store owns one editable invoice and keeps its derived figures
// consistent across every mutation. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	state  State
	nextID int64
}

// NewStore creates a store seeded with editor defaults
func NewStore() *Store {
	return NewStoreWith(NewState())
}

// NewStoreWith creates a store around an existing state, normalizing
// line item IDs and recomputing derived figures.
func NewStoreWith(state State) *Store {
	s := &Store{state: state.Clone(), nextID: 1}
	for i := range s.state.LineItems {
		item := &s.state.LineItems[i]
		if item.ID == "" {
			item.ID = s.newItemID()
		}
		item.Amount = LineAmount(item.Quantity, item.UnitPrice)
	}
	s.recompute()
	return s
}

func (s *Store) newItemID() string {
	id := fmt.Sprintf("li-%d", s.nextID)
	s.nextID++
	return id
}

func (s *Store) recompute() {
	s.state.Totals = ComputeTotals(s.state.LineItems, s.state.Rates)
}

// State returns a snapshot of the current invoice
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ApplyUpdate applies a partial update. Derived totals are recomputed
// only when the patch touches a figure they depend on.
func (s *Store) ApplyUpdate(p Patch) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setStr(&s.state.CompanyName, p.CompanyName)
	setStr(&s.state.CompanyAddress, p.CompanyAddress)
	setStr(&s.state.CompanyLogo, p.CompanyLogo)
	setStr(&s.state.ClientName, p.ClientName)
	setStr(&s.state.ClientAddress, p.ClientAddress)
	setStr(&s.state.ClientEmail, p.ClientEmail)
	setStr(&s.state.InvoiceNumber, p.InvoiceNumber)
	setStr(&s.state.PONumber, p.PONumber)
	setStr(&s.state.InvoiceDate, p.InvoiceDate)
	setStr(&s.state.DueDate, p.DueDate)
	setStr(&s.state.Currency, p.Currency)
	setStr(&s.state.Notes, p.Notes)
	setStr(&s.state.BankDetails, p.BankDetails)

	if p.Template != nil && ValidTemplate(*p.Template) {
		s.state.Template = *p.Template
	}
	if p.TaxRatePercent != nil {
		s.state.Rates.TaxRatePercent = *p.TaxRatePercent
	}
	if p.OtherTaxAmount != nil {
		s.state.Rates.OtherTaxAmount = *p.OtherTaxAmount
	}
	if p.ShippingAmount != nil {
		s.state.Rates.ShippingAmount = *p.ShippingAmount
	}
	if p.DiscountValue != nil {
		s.state.Rates.DiscountValue = *p.DiscountValue
	}
	if p.DiscountType != nil {
		s.state.Rates.DiscountType = *p.DiscountType
	}
	if p.ShowSubtotal != nil {
		s.state.Rates.ShowSubtotal = *p.ShowSubtotal
	}
	if p.ShowTax != nil {
		s.state.Rates.ShowTax = *p.ShowTax
	}
	if p.ShowShipping != nil {
		s.state.Rates.ShowShipping = *p.ShowShipping
	}
	if p.ShowDiscount != nil {
		s.state.Rates.ShowDiscount = *p.ShowDiscount
	}

	if p.LineItems != nil {
		s.replaceItems(*p.LineItems)
	}

	if p.touchesTotals() {
		s.recompute()
	}
	return s.state.Clone()
}

func (s *Store) replaceItems(items []LineItem) {
	s.state.LineItems = make([]LineItem, len(items))
	copy(s.state.LineItems, items)
	for i := range s.state.LineItems {
		item := &s.state.LineItems[i]
		if item.ID == "" {
			item.ID = s.newItemID()
		}
		item.Amount = LineAmount(item.Quantity, item.UnitPrice)
	}
}

// AddLineItem appends a blank row and returns the new state
func (s *Store) AddLineItem() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LineItems = append(s.state.LineItems, LineItem{
		ID:       s.newItemID(),
		Quantity: money.FromInt(1),
	})
	s.recompute()
	return s.state.Clone()
}

// RemoveLineItem deletes the row with the given id. Removing an unknown
// id is a no-op.
func (s *Store) RemoveLineItem(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.state.LineItems {
		if item.ID == id {
			s.state.LineItems = append(s.state.LineItems[:i], s.state.LineItems[i+1:]...)
			s.recompute()
			break
		}
	}
	return s.state.Clone()
}

// UpdateLineItem edits one field of one row. Editing quantity or unit
// price rederives the row amount; the amount itself cannot be set
// directly, and unknown fields are ignored.
func (s *Store) UpdateLineItem(id, field string, value interface{}) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.LineItems {
		item := &s.state.LineItems[i]
		if item.ID != id {
			continue
		}
		switch field {
		case "description":
			if v, ok := value.(string); ok {
				item.Description = v
			}
		case "quantity":
			item.Quantity = money.Coerce(value)
			item.Amount = LineAmount(item.Quantity, item.UnitPrice)
			s.recompute()
		case "unit_price":
			item.UnitPrice = money.Coerce(value)
			item.Amount = LineAmount(item.Quantity, item.UnitPrice)
			s.recompute()
		}
		break
	}
	return s.state.Clone()
}

// MergeExtractedData folds extracted document data into the invoice.
// Fields present in the patch win over current values; extracted line
// items replace the current list.
func (s *Store) MergeExtractedData(p Patch) State {
	return s.ApplyUpdate(p)
}

// MarkSent flips the lifecycle status after a successful delivery
func (s *Store) MarkSent() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusSent
	return s.state.Clone()
}
