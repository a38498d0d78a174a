package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/models"
)

// Pair is the canonical key of a pairwise balance. First is always the lower user ID.
type Pair struct {
	First  int64
	Second int64
}

// IsSelf reports whether both sides are the same user. Self pairs are never stored.
func (p Pair) IsSelf() bool {
	return p.First == p.Second
}

// Debt is a directed amount: Holder owes Receiver Amount.
type Debt struct {
	Holder   int64
	Receiver int64
	Amount   decimal.Decimal
}

// Normalize maps a (holder, receiver, amount) triple onto its canonical pair and
// the signed delta to apply to the stored amount. When the holder has the higher
// ID the pair is swapped and the amount negated, so both orientations of the same
// two users land on one row.
func Normalize(holderID, receiverID int64, amount decimal.Decimal) (Pair, decimal.Decimal) {
	if holderID > receiverID {
		return Pair{First: receiverID, Second: holderID}, amount.Neg()
	}
	return Pair{First: holderID, Second: receiverID}, amount
}

// Resolve is the inverse of Normalize. A non-negative amount means the first user
// holds the debt, a negative one means the second user does. The returned amount
// is never negative.
func Resolve(pair Pair, signed decimal.Decimal) Debt {
	if signed.IsNegative() {
		return Debt{Holder: pair.Second, Receiver: pair.First, Amount: signed.Neg()}
	}
	return Debt{Holder: pair.First, Receiver: pair.Second, Amount: signed}
}

// ResolveBalance resolves a stored balance row.
func ResolveBalance(b *models.PairwiseBalance) Debt {
	return Resolve(PairOf(b), b.Amount)
}

// PairOf returns the canonical key of a stored balance row.
func PairOf(b *models.PairwiseBalance) Pair {
	return Pair{First: b.FirstUserID, Second: b.SecondUserID}
}
