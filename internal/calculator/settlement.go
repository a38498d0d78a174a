package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/models"
)

// NetBalance is the amount still to be transferred between one pair of users,
// netted across every open share that involves them.
type NetBalance struct {
	Pair Pair
	Debt

	// ShareIDs are the open shares that contributed to this pair.
	ShareIDs []string

	// LastNotifiedAt is the most recent reminder sent for any contributing
	// share, nil if none was ever sent.
	LastNotifiedAt *time.Time
}

// SettlementResult is the output of one aggregation pass.
type SettlementResult struct {
	// Balances has one entry per pair with a nonzero net, ordered by pair.
	Balances []NetBalance

	// Settled are the IDs of shares whose outstanding amount is negligible
	// and which should be marked complete.
	Settled []string
}

type accumulator struct {
	signed         decimal.Decimal
	shareIDs       []string
	lastNotifiedAt *time.Time
}

// Aggregate nets a set of open shares into pairwise balances.
//
// Algorithm:
// - Group shares by request and read each request's total parts once
// - stillOwes = owed(share) - payedAmount
// - |stillOwes| < 0.01: settled, the share is reported for completion
// - Otherwise add stillOwes to the canonical pair (share user owes recipient)
// - Pairs whose net is below 0.01 are dropped
//
// Every share is visited once and addition is commutative, so the result does
// not depend on input order and re-running over the same input is idempotent.
// A share owed to its own recipient carries no debt and is reported as settled.
func Aggregate(shares []models.OpenShare) (*SettlementResult, error) {
	totals := make(map[string]decimal.Decimal)
	nets := make(map[Pair]*accumulator)
	result := &SettlementResult{}

	for _, share := range shares {
		total, ok := totals[share.RequestID]
		if !ok {
			total = share.TotalParts
			totals[share.RequestID] = total
		}

		stillOwes, err := Outstanding(share.RequestShare, total, share.RequestAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate share %s of request %s: %w", share.ID, share.RequestID, err)
		}

		if IsSettled(stillOwes) || share.UserID == share.RecipientID {
			result.Settled = append(result.Settled, share.ID)
			continue
		}

		pair, signed := Normalize(share.UserID, share.RecipientID, stillOwes)
		acc, exists := nets[pair]
		if !exists {
			acc = &accumulator{signed: decimal.Zero}
			nets[pair] = acc
		}
		acc.signed = acc.signed.Add(signed)
		acc.shareIDs = append(acc.shareIDs, share.ID)
		if share.LastNotifiedAt != nil && (acc.lastNotifiedAt == nil || share.LastNotifiedAt.After(*acc.lastNotifiedAt)) {
			t := *share.LastNotifiedAt
			acc.lastNotifiedAt = &t
		}
	}

	for pair, acc := range nets {
		if IsSettled(acc.signed) {
			continue
		}
		sort.Strings(acc.shareIDs)
		result.Balances = append(result.Balances, NetBalance{
			Pair:           pair,
			Debt:           Resolve(pair, acc.signed),
			ShareIDs:       acc.shareIDs,
			LastNotifiedAt: acc.lastNotifiedAt,
		})
	}

	sort.Slice(result.Balances, func(i, j int) bool {
		a, b := result.Balances[i].Pair, result.Balances[j].Pair
		if a.First != b.First {
			return a.First < b.First
		}
		return a.Second < b.Second
	})
	sort.Strings(result.Settled)

	return result, nil
}
