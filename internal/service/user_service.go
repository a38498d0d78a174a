package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/storage"
	"github.com/mmynk/payup/pkg/api"
)

// UserService exposes the caller's profile and payment settings.
type UserService struct {
	store storage.Store
}

// NewUserService creates a new UserService with the given storage backend.
func NewUserService(store storage.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetProfile(ctx context.Context, _ *connect.Request[api.GetProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ProfileResponse{User: toAPIUser(user)}), nil
}

// UpdateProfile applies the fields that are set. Choosing the hosted method
// requires a provider key, stored or sent along.
func (s *UserService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.ProfileResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	msg := req.Msg
	if msg.Name != nil {
		user.Name = strings.TrimSpace(*msg.Name)
	}
	if msg.IBAN != nil {
		user.IBAN = models.NormalizeIBAN(*msg.IBAN)
	}
	if msg.ProviderKey != nil {
		user.ProviderKey = strings.TrimSpace(*msg.ProviderKey)
	}
	if msg.AllowManualPayments != nil {
		user.AllowManualPayments = *msg.AllowManualPayments
	}
	if msg.PaymentMethod != nil {
		user.PaymentMethod = models.PaymentMethod(*msg.PaymentMethod)
	}
	if user.PaymentMethod == models.PaymentMethodHosted && user.ProviderKey == "" {
		return nil, toConnectError(apperr.Invalid("provider_key", "is required for the hosted payment method"))
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Profile updated", "user_id", user.ID, "payment_method", user.PaymentMethod)
	return connect.NewResponse(&api.ProfileResponse{User: toAPIUser(user)}), nil
}
