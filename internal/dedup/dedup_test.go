package dedup

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/types"
)

func baseRecord() types.Record {
	return types.Record{
		Kind:         types.KindExpense,
		OwnerID:      "u1",
		OccurredDate: "01/01/2025",
		Amount:       decimal.RequireFromString("50.00"),
		Category:     "Food",
		Description:  types.StringPtr("lunch"),
	}
}

func TestKeyOf_IgnoresStorageIdentifiers(t *testing.T) {
	// Given: the same logical entry with different local IDs
	a := baseRecord()
	b := baseRecord()
	a.LocalID = 1
	b.LocalID = 42

	// Then: the content keys are identical
	if KeyOf(a) != KeyOf(b) {
		t.Error("local id must not participate in the content key")
	}
}

func TestKeyOf_AmountCanonicalization(t *testing.T) {
	// "50", "50.0" and "50.00" are the same currency value
	a := baseRecord()
	b := baseRecord()
	a.Amount = decimal.RequireFromString("50")
	b.Amount = decimal.RequireFromString("50.00")

	if KeyOf(a) != KeyOf(b) {
		t.Error("equal currency values must produce equal keys")
	}

	// Exact equality otherwise: 50.00 vs 50.01 differ
	b.Amount = decimal.RequireFromString("50.01")
	if KeyOf(a) == KeyOf(b) {
		t.Error("different amounts must produce different keys")
	}
}

func TestKeyOf_NilAndEmptyDescriptionAreDistinct(t *testing.T) {
	// Given: otherwise identical records
	withEmpty := baseRecord()
	withEmpty.Description = types.StringPtr("")
	withNil := baseRecord()
	withNil.Description = nil

	// Then: absent and empty descriptions never collide
	if KeyOf(withEmpty) == KeyOf(withNil) {
		t.Error(`description "" and absent description must not collide`)
	}
}

func TestKeyOf_FieldSensitivity(t *testing.T) {
	base := KeyOf(baseRecord())

	r := baseRecord()
	r.OwnerID = "u2"
	if KeyOf(r) == base {
		t.Error("owner id must participate in the key")
	}

	r = baseRecord()
	r.Kind = types.KindIncome
	if KeyOf(r) == base {
		t.Error("kind must participate in the key")
	}

	r = baseRecord()
	r.OccurredDate = "02/01/2025"
	if KeyOf(r) == base {
		t.Error("occurred date must participate in the key")
	}

	r = baseRecord()
	r.Category = "food"
	if KeyOf(r) == base {
		t.Error("category comparison is exact, not case-folded")
	}

	r = baseRecord()
	r.Description = types.StringPtr("Lunch")
	if KeyOf(r) == base {
		t.Error("description comparison is exact")
	}
}

func TestCanonicalAmount(t *testing.T) {
	cases := map[string]string{
		"50":      "50.00",
		"50.0":    "50.00",
		"50.00":   "50.00",
		"0":       "0.00",
		"1234.5":  "1234.50",
		"not-a-n": "not-a-n", // invalid input passes through, never matches
	}
	for in, want := range cases {
		if got := CanonicalAmount(in); got != want {
			t.Errorf("CanonicalAmount(%q) = %q, want %q", in, got, want)
		}
	}
}
