package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const (
	payAudience      = "pay"
	reminderAudience = "reminder"
)

// PayLinkClaims is the payload of a pay link: who owed whom how much when the
// link was issued. Consumers must revalidate it against the live balance.
type PayLinkClaims struct {
	HolderID   int64           `json:"holder_id"`
	ReceiverID int64           `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	jwt.RegisteredClaims
}

// ReminderLinkClaims binds a confirmation link to one reminder.
type ReminderLinkClaims struct {
	ReminderID string `json:"reminder_id"`
	jwt.RegisteredClaims
}

// LinkSigner issues and verifies the signed links mailed to users.
type LinkSigner struct {
	secretKey []byte
	ttl       time.Duration
}

// NewLinkSigner creates a signer whose links expire after ttl.
func NewLinkSigner(secretKey string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{secretKey: []byte(secretKey), ttl: ttl}
}

func (s *LinkSigner) registered(audience string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

// SignPayLink returns a token for paying amount from holder to receiver.
func (s *LinkSigner) SignPayLink(holderID, receiverID int64, amount decimal.Decimal) (string, error) {
	return sign(s.secretKey, &PayLinkClaims{
		HolderID:         holderID,
		ReceiverID:       receiverID,
		Amount:           amount,
		RegisteredClaims: s.registered(payAudience),
	})
}

// VerifyPayLink checks signature, audience and expiry of a pay link.
func (s *LinkSigner) VerifyPayLink(token string) (*PayLinkClaims, error) {
	claims := &PayLinkClaims{}
	if err := parse(s.secretKey, token, payAudience, claims); err != nil {
		return nil, err
	}
	if claims.HolderID == 0 || claims.ReceiverID == 0 {
		return nil, fmt.Errorf("%w: pay link without parties", ErrInvalidToken)
	}
	return claims, nil
}

// SignReminderLink returns a token that answers the given reminder.
func (s *LinkSigner) SignReminderLink(reminderID string) (string, error) {
	return sign(s.secretKey, &ReminderLinkClaims{
		ReminderID:       reminderID,
		RegisteredClaims: s.registered(reminderAudience),
	})
}

// VerifyReminderLink checks signature, audience and expiry of a reminder link.
func (s *LinkSigner) VerifyReminderLink(token string) (*ReminderLinkClaims, error) {
	claims := &ReminderLinkClaims{}
	if err := parse(s.secretKey, token, reminderAudience, claims); err != nil {
		return nil, err
	}
	if claims.ReminderID == "" {
		return nil, fmt.Errorf("%w: reminder link without id", ErrInvalidToken)
	}
	return claims, nil
}
