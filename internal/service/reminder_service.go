package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/reminders"
	"github.com/mmynk/payup/pkg/api"
)

// ReminderService answers "did you pay?" prompts through signed links.
type ReminderService struct {
	machine *reminders.Machine
	links   *auth.LinkSigner
}

// NewReminderService creates a new ReminderService. links verifies the signed confirm links.
func NewReminderService(machine *reminders.Machine, links *auth.LinkSigner) *ReminderService {
	return &ReminderService{machine: machine, links: links}
}

// ConfirmReminder records the holder's answer. A reminder is answered once.
func (s *ReminderService) ConfirmReminder(ctx context.Context, req *connect.Request[api.ConfirmReminderRequest]) (*connect.Response[api.ConfirmReminderResponse], error) {
	if err := validate(req.Msg); err != nil {
		return nil, err
	}

	claims, err := s.links.VerifyReminderLink(req.Msg.Token)
	if err != nil {
		return nil, toConnectError(apperr.Invalid("token", "%v", err))
	}

	r, err := s.machine.Confirm(ctx, claims.ReminderID, req.Msg.Paid)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ConfirmReminderResponse{
		ReminderID: r.ID,
		Outcome:    string(r.Outcome),
		Amount:     r.PaidAmount,
	}), nil
}
