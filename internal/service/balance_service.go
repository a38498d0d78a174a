package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/paylink"
	"github.com/mmynk/payup/internal/storage"
	"github.com/mmynk/payup/pkg/api"
)

// BalanceService shows pairwise balances and settles them.
type BalanceService struct {
	store    storage.Store
	payLinks *paylink.Service
}

// NewBalanceService creates a new BalanceService with the given storage backend.
func NewBalanceService(store storage.Store, payLinks *paylink.Service) *BalanceService {
	return &BalanceService{store: store, payLinks: payLinks}
}

// ListBalances returns the caller's open balances. A positive amount is owed
// by the caller.
func (s *BalanceService) ListBalances(ctx context.Context, _ *connect.Request[api.ListBalancesRequest]) (*connect.Response[api.ListBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListBalancesForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var others []int64
	for _, b := range rows {
		debt := calculator.ResolveBalance(b)
		others = append(others, counterparty(debt, userID))
	}
	users, err := s.store.GetUsersByIDs(ctx, others)
	if err != nil {
		return nil, toConnectError(err)
	}

	balances := make([]*api.Balance, 0, len(rows))
	for _, b := range rows {
		debt := calculator.ResolveBalance(b)
		if calculator.IsSettled(debt.Amount) {
			continue
		}
		other := counterparty(debt, userID)
		amount := debt.Amount
		if debt.Holder != userID {
			amount = amount.Neg()
		}
		balance := &api.Balance{
			CounterpartyID: other,
			Amount:         amount,
			LastRequestID:  b.LastRequestID,
			LastPaymentAt:  b.LastPaymentAt,
		}
		if u, ok := users[other]; ok {
			balance.CounterpartyName = u.Name
		}
		balances = append(balances, balance)
	}
	return connect.NewResponse(&api.ListBalancesResponse{Balances: balances}), nil
}

func counterparty(debt calculator.Debt, userID int64) int64 {
	if debt.Holder == userID {
		return debt.Receiver
	}
	return debt.Holder
}

// IssuePayLink signs a link for the caller to pay the receiver.
func (s *BalanceService) IssuePayLink(ctx context.Context, req *connect.Request[api.IssuePayLinkRequest]) (*connect.Response[api.PayLinkResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	link, err := s.payLinks.IssuePayLink(ctx, userID, req.Msg.ReceiverID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.PayLinkResponse{
		URL:    link.URL,
		Token:  link.Token,
		Amount: link.Amount,
	}), nil
}

// OpenPayLink is public: the signed token identifies the payer.
func (s *BalanceService) OpenPayLink(ctx context.Context, req *connect.Request[api.OpenPayLinkRequest]) (*connect.Response[api.PayPageResponse], error) {
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	page, err := s.payLinks.OpenPayLink(ctx, req.Msg.Token)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.PayPageResponse{
		HolderName:    page.Holder.Name,
		ReceiverID:    page.Receiver.ID,
		ReceiverName:  page.Receiver.Name,
		Amount:        page.Amount,
		AlreadyOpened: page.AlreadyOpened,
		Method:        string(page.Method),
		IBAN:          page.IBAN,
		CheckoutURL:   page.CheckoutURL,
	}), nil
}

// CompleteCheckout checks the caller's open checkout towards the payee.
func (s *BalanceService) CompleteCheckout(ctx context.Context, req *connect.Request[api.CompleteCheckoutRequest]) (*connect.Response[api.CompleteCheckoutResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	status, err := s.payLinks.CompleteCheckout(ctx, userID, req.Msg.PayeeID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CompleteCheckoutResponse{Status: string(status)}), nil
}

// RecordPayment records a payment made outside the app.
func (s *BalanceService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	settled, err := s.payLinks.RecordManualPayment(ctx, userID, req.Msg.PayerID, req.Msg.PayeeID, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RecordPaymentResponse{
		PayerID: settled.FromUserID,
		PayeeID: settled.ToUserID,
		Amount:  settled.Amount,
		Source:  string(settled.Source),
	}), nil
}
