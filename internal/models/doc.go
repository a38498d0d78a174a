// Package models defines the core domain models for PayUp.
//
// # Models
//
//   - User: a registered person who can owe or be owed money
//   - PaymentRequest: an owner asks one or more users to each pay a share of a total
//   - RequestShare: one user's weighted stake in a PaymentRequest
//   - PairwiseBalance: the single net debt between two users
//   - Reminder: a "did you pay?" follow-up issued when a pay link is opened
//   - Settlement: a payment from one user to another that reduces a debt
//   - BankTransaction: an imported bank statement line
//
// # Design Principles
//
// 1. **Canonical pairs**: a PairwiseBalance is stored once per unordered pair,
// lower user ID first. Use calculator.Normalize and calculator.Resolve, never an
// inline comparison.
// 2. **Decimal money**: amounts are decimal.Decimal in memory and integer cents in
// storage.
// 3. **Avoid circular references**: use IDs instead of pointers for relationships.
package models
