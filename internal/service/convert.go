package service

import (
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		IBAN:                u.IBAN,
		PaymentMethod:       string(u.PaymentMethod),
		AllowManualPayments: u.AllowManualPayments,
		HasProviderKey:      u.ProviderKey != "",
	}
}

func toAPIRequest(r *models.PaymentRequest) *api.PaymentRequest {
	shares := make([]api.Share, len(r.Shares))
	for i, s := range r.Shares {
		shares[i] = api.Share{
			ID:          s.ID,
			UserID:      s.UserID,
			Parts:       s.Parts,
			PayedAmount: s.PayedAmount,
			Complete:    s.Complete,
		}
	}
	return &api.PaymentRequest{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		RecipientID: r.RecipientID,
		Amount:      r.Amount,
		Description: r.Description,
		Published:   r.Published,
		CreatedAt:   r.CreatedAt,
		Shares:      shares,
	}
}

func fromShareInputs(in []api.ShareInput) []models.RequestShare {
	shares := make([]models.RequestShare, len(in))
	for i, s := range in {
		shares[i] = models.RequestShare{UserID: s.UserID, Parts: s.Parts}
	}
	return shares
}
