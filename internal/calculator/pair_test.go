package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizeResolveRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		holder   int64
		receiver int64
		amount   string
	}{
		{"lower id holds", 2, 5, "30"},
		{"higher id holds", 5, 2, "30"},
		{"zero amount", 3, 9, "0"},
		{"zero amount flipped", 9, 3, "0"},
		{"fractional", 11, 7, "12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, signed := Normalize(tt.holder, tt.receiver, d(tt.amount))
			if pair.First > pair.Second {
				t.Fatalf("pair not ordered: %+v", pair)
			}

			got := Resolve(pair, signed)
			if got.Holder != tt.holder || got.Receiver != tt.receiver {
				t.Errorf("Resolve(Normalize(%d, %d)) = holder %d receiver %d", tt.holder, tt.receiver, got.Holder, got.Receiver)
			}
			if !got.Amount.Equal(d(tt.amount)) {
				t.Errorf("amount = %s, want %s", got.Amount, tt.amount)
			}
		})
	}
}

func TestNormalizeIsOrientationIndependent(t *testing.T) {
	// (h, r, a) and (r, h, -a) describe the same debt and must map to the same row.
	for _, ids := range [][2]int64{{1, 2}, {2, 1}, {40, 7}} {
		p1, s1 := Normalize(ids[0], ids[1], d("15"))
		p2, s2 := Normalize(ids[1], ids[0], d("-15"))
		if p1 != p2 {
			t.Errorf("pairs differ: %+v vs %+v", p1, p2)
		}
		if !s1.Equal(s2) {
			t.Errorf("signed amounts differ: %s vs %s", s1, s2)
		}
	}
}

func TestManualTransferScenario(t *testing.T) {
	// User 5 pays user 2 thirty: user 2 now owes user 5.
	pair, signed := Normalize(2, 5, d("30"))

	if pair.First != 2 || pair.Second != 5 {
		t.Errorf("pair = %+v, want {2 5}", pair)
	}
	if !signed.Equal(d("30")) {
		t.Errorf("signed = %s, want 30", signed)
	}

	debt := ResolveBalance(&models.PairwiseBalance{FirstUserID: 2, SecondUserID: 5, Amount: signed})
	if debt.Holder != 2 || debt.Receiver != 5 {
		t.Errorf("debt = %+v, want holder 2 receiver 5", debt)
	}
}

func TestResolveNeverNegative(t *testing.T) {
	debt := Resolve(Pair{First: 1, Second: 2}, d("-42.5"))
	if debt.Amount.IsNegative() {
		t.Errorf("amount = %s, want non-negative", debt.Amount)
	}
	if debt.Holder != 2 || debt.Receiver != 1 {
		t.Errorf("debt = %+v, want holder 2 receiver 1", debt)
	}
}

func TestPairIsSelf(t *testing.T) {
	pair, _ := Normalize(4, 4, d("10"))
	if !pair.IsSelf() {
		t.Error("expected self pair")
	}
	pair, _ = Normalize(4, 5, d("10"))
	if pair.IsSelf() {
		t.Error("unexpected self pair")
	}
}
