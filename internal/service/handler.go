package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/middleware"
	"github.com/mmynk/payup/pkg/api"
)

// Services groups the RPC implementations mounted by Register.
type Services struct {
	Auth      *AuthService
	Users     *UserService
	Requests  *RequestService
	Balances  *BalanceService
	Reminders *ReminderService
}

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// Register mounts every procedure on mux. Session tokens are required except
// for api.PublicProcedures.
func Register(mux *http.ServeMux, s Services, jwtManager *auth.JWTManager) {
	opts := []connect.HandlerOption{
		api.WithCodec(),
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager, api.PublicProcedures...),
			middleware.LoggingInterceptor(),
		),
	}

	handle(mux, api.SignInProcedure, s.Auth.SignIn, opts...)

	handle(mux, api.GetProfileProcedure, s.Users.GetProfile, opts...)
	handle(mux, api.UpdateProfileProcedure, s.Users.UpdateProfile, opts...)

	handle(mux, api.CreateRequestProcedure, s.Requests.CreateRequest, opts...)
	handle(mux, api.GetRequestProcedure, s.Requests.GetRequest, opts...)
	handle(mux, api.ListRequestsProcedure, s.Requests.ListRequests, opts...)
	handle(mux, api.UpdateRequestProcedure, s.Requests.UpdateRequest, opts...)
	handle(mux, api.DeleteRequestProcedure, s.Requests.DeleteRequest, opts...)
	handle(mux, api.PublishRequestProcedure, s.Requests.PublishRequest, opts...)

	handle(mux, api.ListBalancesProcedure, s.Balances.ListBalances, opts...)
	handle(mux, api.IssuePayLinkProcedure, s.Balances.IssuePayLink, opts...)
	handle(mux, api.OpenPayLinkProcedure, s.Balances.OpenPayLink, opts...)
	handle(mux, api.CompleteCheckoutProcedure, s.Balances.CompleteCheckout, opts...)
	handle(mux, api.RecordPaymentProcedure, s.Balances.RecordPayment, opts...)

	handle(mux, api.ConfirmReminderProcedure, s.Reminders.ConfirmReminder, opts...)
}
