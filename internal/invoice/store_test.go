package invoice

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-builder/internal/money"
)

func strPtr(s string) *string { return &s }

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()
	state := s.State()

	assert.True(t, strings.HasPrefix(state.InvoiceNumber, "INV-"))
	assert.NotEmpty(t, state.InvoiceDate)
	assert.Equal(t, "USD", state.Currency)
	assert.Equal(t, TemplateModern, state.Template)
	assert.Equal(t, StatusDraft, state.Status)
	assert.Empty(t, state.LineItems)
	assert.True(t, state.Totals.Total.IsZero())
	assert.Equal(t, DiscountPercentage, state.Rates.DiscountType)
	assert.True(t, state.Rates.ShowSubtotal)
	assert.True(t, state.Rates.ShowTax)
	assert.False(t, state.Rates.ShowShipping)
	assert.False(t, state.Rates.ShowDiscount)
}

func TestAddLineItem(t *testing.T) {
	s := NewStore()
	state := s.AddLineItem()

	require.Len(t, state.LineItems, 1)
	row := state.LineItems[0]
	assert.NotEmpty(t, row.ID)
	assert.Empty(t, row.Description)
	assert.Equal(t, "1", row.Quantity.String())
	assert.True(t, row.UnitPrice.IsZero())
	assert.True(t, row.Amount.IsZero())
	assert.True(t, state.Totals.Subtotal.IsZero())
	assert.True(t, state.Totals.Total.IsZero())
}

func TestAddLineItemGeneratesUniqueIDs(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	s.AddLineItem()
	state := s.AddLineItem()

	seen := map[string]bool{}
	for _, row := range state.LineItems {
		assert.False(t, seen[row.ID], "duplicate id %s", row.ID)
		seen[row.ID] = true
	}
}

func TestUpdateLineItem(t *testing.T) {
	s := NewStore()
	id := s.AddLineItem().LineItems[0].ID

	s.UpdateLineItem(id, "quantity", 3)
	state := s.UpdateLineItem(id, "unit_price", 50)

	require.Len(t, state.LineItems, 1)
	assert.Equal(t, "150", state.LineItems[0].Amount.String())
	assert.Equal(t, "150", state.Totals.Subtotal.String())

	state = s.ApplyUpdate(Patch{TaxRatePercent: decPtr("10")})
	assert.Equal(t, "15", state.Totals.SalesTax.String())
	assert.Equal(t, "165", state.Totals.Total.String())
}

func decPtr(s string) *decimal.Decimal {
	d := money.MustFromString(s)
	return &d
}

func TestUpdateLineItemDescriptionKeepsAmount(t *testing.T) {
	s := NewStore()
	id := s.AddLineItem().LineItems[0].ID
	s.UpdateLineItem(id, "quantity", 2)
	s.UpdateLineItem(id, "unit_price", 40)

	state := s.UpdateLineItem(id, "description", "web design")
	assert.Equal(t, "web design", state.LineItems[0].Description)
	assert.Equal(t, "80", state.LineItems[0].Amount.String())
}

func TestUpdateLineItemAmountIsNotSettable(t *testing.T) {
	s := NewStore()
	id := s.AddLineItem().LineItems[0].ID
	s.UpdateLineItem(id, "quantity", 2)
	s.UpdateLineItem(id, "unit_price", 10)

	state := s.UpdateLineItem(id, "amount", 9999)
	assert.Equal(t, "20", state.LineItems[0].Amount.String())
}

func TestUpdateLineItemCoercesBadInputToZero(t *testing.T) {
	s := NewStore()
	id := s.AddLineItem().LineItems[0].ID
	s.UpdateLineItem(id, "unit_price", 25)

	state := s.UpdateLineItem(id, "quantity", "not a number")
	assert.True(t, state.LineItems[0].Quantity.IsZero())
	assert.True(t, state.LineItems[0].Amount.IsZero())
	assert.True(t, state.Totals.Subtotal.IsZero())
}

func TestUpdateLineItemUnknownIDIsNoOp(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	before := s.State()

	after := s.UpdateLineItem("li-999", "quantity", 5)
	assert.Equal(t, before, after)
}

func TestRemoveLineItem(t *testing.T) {
	s := NewStore()
	first := s.AddLineItem().LineItems[0].ID
	s.AddLineItem()
	s.UpdateLineItem(first, "quantity", 2)
	s.UpdateLineItem(first, "unit_price", 50)

	state := s.RemoveLineItem(first)
	require.Len(t, state.LineItems, 1)
	assert.NotEqual(t, first, state.LineItems[0].ID)
	assert.True(t, state.Totals.Subtotal.IsZero())
}

func TestRemoveLineItemUnknownIDIsNoOp(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	before := s.State()

	after := s.RemoveLineItem("nope")
	assert.Equal(t, before, after)
}

func TestRemoveLineItemPreservesOrder(t *testing.T) {
	s := NewStore()
	var ids []string
	for i := 0; i < 4; i++ {
		state := s.AddLineItem()
		ids = append(ids, state.LineItems[len(state.LineItems)-1].ID)
	}

	state := s.RemoveLineItem(ids[1])
	require.Len(t, state.LineItems, 3)
	assert.Equal(t, ids[0], state.LineItems[0].ID)
	assert.Equal(t, ids[2], state.LineItems[1].ID)
	assert.Equal(t, ids[3], state.LineItems[2].ID)
}

func TestApplyUpdateShallowMerge(t *testing.T) {
	s := NewStore()
	s.ApplyUpdate(Patch{
		CompanyName: strPtr("Rezonia LLC"),
		ClientName:  strPtr("Acme Corp"),
	})

	state := s.ApplyUpdate(Patch{ClientEmail: strPtr("billing@acme.test")})
	assert.Equal(t, "Rezonia LLC", state.CompanyName)
	assert.Equal(t, "Acme Corp", state.ClientName)
	assert.Equal(t, "billing@acme.test", state.ClientEmail)
}

func TestApplyUpdateIdempotent(t *testing.T) {
	s := NewStore()
	patch := Patch{
		ClientName:     strPtr("Acme Corp"),
		TaxRatePercent: decPtr("8.25"),
	}
	first := s.ApplyUpdate(patch)
	second := s.ApplyUpdate(patch)
	assert.Equal(t, first, second)
}

func TestApplyUpdateInvalidTemplateIgnored(t *testing.T) {
	s := NewStore()
	bad := Template("neon")
	state := s.ApplyUpdate(Patch{Template: &bad})
	assert.Equal(t, TemplateModern, state.Template)

	classic := TemplateClassic
	state = s.ApplyUpdate(Patch{Template: &classic})
	assert.Equal(t, TemplateClassic, state.Template)
}

func TestApplyUpdateReplacesLineItemsWholesale(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	s.AddLineItem()

	replacement := []LineItem{{
		Description: "extracted service",
		Quantity:    money.FromInt(4),
		UnitPrice:   money.FromInt(25),
	}}
	state := s.ApplyUpdate(Patch{LineItems: &replacement})

	require.Len(t, state.LineItems, 1)
	assert.Equal(t, "extracted service", state.LineItems[0].Description)
	assert.NotEmpty(t, state.LineItems[0].ID)
	assert.Equal(t, "100", state.LineItems[0].Amount.String())
	assert.Equal(t, "100", state.Totals.Subtotal.String())
}

func TestMergeExtractedDataReplacesItemsAndRecomputes(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	s.AddLineItem()

	items := []LineItem{{
		Description: "consulting",
		Quantity:    money.FromInt(10),
		UnitPrice:   money.FromInt(150),
		Amount:      money.FromInt(1), // stale extracted amount gets rederived
	}}
	state := s.MergeExtractedData(Patch{
		ClientName: strPtr("Extracted Client"),
		LineItems:  &items,
	})

	require.Len(t, state.LineItems, 1)
	assert.Equal(t, "Extracted Client", state.ClientName)
	assert.Equal(t, "1500", state.LineItems[0].Amount.String())
	assert.Equal(t, "1500", state.Totals.Subtotal.String())
}

func TestMergeExtractedDataToleratesPartialPayload(t *testing.T) {
	s := NewStore()
	id := s.AddLineItem().LineItems[0].ID

	state := s.MergeExtractedData(Patch{InvoiceNumber: strPtr("INV-2024-007")})
	assert.Equal(t, "INV-2024-007", state.InvoiceNumber)
	require.Len(t, state.LineItems, 1)
	assert.Equal(t, id, state.LineItems[0].ID)
}

func TestStateReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	s.AddLineItem()

	snapshot := s.State()
	snapshot.LineItems[0].Description = "mutated"
	snapshot.ClientName = "mutated"

	fresh := s.State()
	assert.Empty(t, fresh.LineItems[0].Description)
	assert.Empty(t, fresh.ClientName)
}

func TestAmountInvariantHoldsAcrossOperations(t *testing.T) {
	s := NewStore()
	s.AddLineItem()
	s.AddLineItem()
	state := s.State()

	s.UpdateLineItem(state.LineItems[0].ID, "quantity", 2.5)
	s.UpdateLineItem(state.LineItems[0].ID, "unit_price", "19.99")
	s.UpdateLineItem(state.LineItems[1].ID, "unit_price", 7)
	s.RemoveLineItem(state.LineItems[1].ID)
	final := s.AddLineItem()

	for _, row := range final.LineItems {
		expected := LineAmount(row.Quantity, row.UnitPrice)
		assert.True(t, row.Amount.Equal(expected), "item %s amount drifted", row.ID)
	}
	assert.True(t, final.Totals.Subtotal.Equal(Subtotal(final.LineItems)))
}

func TestMarkSent(t *testing.T) {
	s := NewStore()
	assert.Equal(t, StatusDraft, s.State().Status)
	state := s.MarkSent()
	assert.Equal(t, StatusSent, state.Status)
}

func TestNewStoreWithNormalizesItems(t *testing.T) {
	seed := NewState()
	seed.LineItems = []LineItem{
		{Description: "a", Quantity: money.FromInt(2), UnitPrice: money.FromInt(30)},
		{ID: "custom", Description: "b", Quantity: money.FromInt(1), UnitPrice: money.FromInt(5), Amount: money.FromInt(999)},
	}

	state := NewStoreWith(seed).State()
	require.Len(t, state.LineItems, 2)
	assert.NotEmpty(t, state.LineItems[0].ID)
	assert.Equal(t, "custom", state.LineItems[1].ID)
	assert.Equal(t, "60", state.LineItems[0].Amount.String())
	assert.Equal(t, "5", state.LineItems[1].Amount.String())
	assert.Equal(t, "65", state.Totals.Subtotal.String())
}
