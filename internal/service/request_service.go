package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
	"github.com/mmynk/payup/pkg/api"
)

// RequestService manages payment requests and their shares.
type RequestService struct {
	store   storage.Store
	settler *settlement.Settler
}

// NewRequestService creates a RequestService. settler books published requests.
func NewRequestService(store storage.Store, settler *settlement.Settler) *RequestService {
	return &RequestService{store: store, settler: settler}
}

// requireUsers checks that every id belongs to a registered user.
func (s *RequestService) requireUsers(ctx context.Context, ids []int64) error {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return apperr.NotFound("user", id)
		}
	}
	return nil
}

func (s *RequestService) checkParticipants(ctx context.Context, req *models.PaymentRequest) error {
	if err := calculator.ValidateShares(req.Amount, req.Shares); err != nil {
		return err
	}
	ids := []int64{req.RecipientID}
	for _, share := range req.Shares {
		ids = append(ids, share.UserID)
	}
	return s.requireUsers(ctx, ids)
}

// loadOwned returns the request if the caller owns it.
func (s *RequestService) loadOwned(ctx context.Context, id string, userID int64) (*models.PaymentRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != userID {
		return nil, apperr.Forbidden("only the owner can change request %s", id)
	}
	return req, nil
}

// CreateRequest stores a new draft, or books it right away when Publish is set.
func (s *RequestService) CreateRequest(ctx context.Context, req *connect.Request[api.CreateRequestRequest]) (*connect.Response[api.RequestResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	recipientID := req.Msg.RecipientID
	if recipientID == 0 {
		recipientID = userID
	}
	pr := &models.PaymentRequest{
		OwnerID:     userID,
		RecipientID: recipientID,
		Amount:      req.Msg.Amount.Round(2),
		Description: strings.TrimSpace(req.Msg.Description),
		CreatedAt:   time.Now().UTC(),
		Shares:      fromShareInputs(req.Msg.Shares),
	}
	if err := s.checkParticipants(ctx, pr); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.CreateRequest(ctx, pr); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Request created", "request_id", pr.ID, "owner_id", userID, "shares", len(pr.Shares))

	if req.Msg.Publish {
		if pr, err = s.settler.Publish(ctx, pr.ID); err != nil {
			return nil, toConnectError(err)
		}
	}
	return connect.NewResponse(&api.RequestResponse{Request: toAPIRequest(pr)}), nil
}

// GetRequest returns a request to its owner, recipient or participants.
func (s *RequestService) GetRequest(ctx context.Context, req *connect.Request[api.GetRequestRequest]) (*connect.Response[api.RequestResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	pr, err := s.store.GetRequest(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !involved(pr, userID) {
		return nil, toConnectError(apperr.Forbidden("not a participant of request %s", pr.ID))
	}
	return connect.NewResponse(&api.RequestResponse{Request: toAPIRequest(pr)}), nil
}

func involved(pr *models.PaymentRequest, userID int64) bool {
	if pr.OwnerID == userID || pr.RecipientID == userID {
		return true
	}
	for _, share := range pr.Shares {
		if share.UserID == userID {
			return true
		}
	}
	return false
}

// ListRequests returns the requests the caller owns or takes part in.
func (s *RequestService) ListRequests(ctx context.Context, _ *connect.Request[api.ListRequestsRequest]) (*connect.Response[api.ListRequestsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	requests, err := s.store.ListRequestsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.PaymentRequest, len(requests))
	for i, pr := range requests {
		out[i] = toAPIRequest(pr)
	}
	return connect.NewResponse(&api.ListRequestsResponse{Requests: out}), nil
}

// UpdateRequest patches a request. Once published only the description can change.
func (s *RequestService) UpdateRequest(ctx context.Context, req *connect.Request[api.UpdateRequestRequest]) (*connect.Response[api.RequestResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}
	msg := req.Msg

	pr, err := s.loadOwned(ctx, msg.ID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	frozen := msg.Amount != nil || msg.RecipientID != nil || msg.Shares != nil
	if pr.Published {
		if frozen {
			return nil, toConnectError(apperr.Conflict("request %s is published; only the description can change", pr.ID))
		}
		if msg.Description != nil {
			if err := s.store.UpdateRequestDescription(ctx, pr.ID, strings.TrimSpace(*msg.Description)); err != nil {
				return nil, toConnectError(err)
			}
			pr.Description = strings.TrimSpace(*msg.Description)
		}
		return connect.NewResponse(&api.RequestResponse{Request: toAPIRequest(pr)}), nil
	}

	if msg.Description != nil {
		pr.Description = strings.TrimSpace(*msg.Description)
	}
	if msg.RecipientID != nil {
		pr.RecipientID = *msg.RecipientID
	}
	if msg.Amount != nil {
		pr.Amount = msg.Amount.Round(2)
	}
	if msg.Shares != nil {
		pr.Shares = fromShareInputs(msg.Shares)
	}
	if err := s.checkParticipants(ctx, pr); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.UpdateRequest(ctx, pr); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Request updated", "request_id", pr.ID)
	return connect.NewResponse(&api.RequestResponse{Request: toAPIRequest(pr)}), nil
}

// DeleteRequest removes a draft.
func (s *RequestService) DeleteRequest(ctx context.Context, req *connect.Request[api.DeleteRequestRequest]) (*connect.Response[api.DeleteRequestResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	if _, err := s.loadOwned(ctx, req.Msg.ID, userID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.store.DeleteRequest(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Request deleted", "request_id", req.Msg.ID)
	return connect.NewResponse(&api.DeleteRequestResponse{}), nil
}

// PublishRequest books a draft onto the pairwise balances.
func (s *RequestService) PublishRequest(ctx context.Context, req *connect.Request[api.PublishRequestRequest]) (*connect.Response[api.RequestResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	if _, err := s.loadOwned(ctx, req.Msg.ID, userID); err != nil {
		return nil, toConnectError(err)
	}
	pr, err := s.settler.Publish(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RequestResponse{Request: toAPIRequest(pr)}), nil
}
