package api

import (
	"context"

	"connectrpc.com/connect"
)

// Procedure paths served by the PayUp handlers.
const (
	SignInProcedure = "/payup.v1.AuthService/SignIn"

	GetProfileProcedure    = "/payup.v1.UserService/GetProfile"
	UpdateProfileProcedure = "/payup.v1.UserService/UpdateProfile"

	CreateRequestProcedure  = "/payup.v1.RequestService/CreateRequest"
	GetRequestProcedure     = "/payup.v1.RequestService/GetRequest"
	ListRequestsProcedure   = "/payup.v1.RequestService/ListRequests"
	UpdateRequestProcedure  = "/payup.v1.RequestService/UpdateRequest"
	DeleteRequestProcedure  = "/payup.v1.RequestService/DeleteRequest"
	PublishRequestProcedure = "/payup.v1.RequestService/PublishRequest"

	ListBalancesProcedure     = "/payup.v1.BalanceService/ListBalances"
	IssuePayLinkProcedure     = "/payup.v1.BalanceService/IssuePayLink"
	OpenPayLinkProcedure      = "/payup.v1.BalanceService/OpenPayLink"
	CompleteCheckoutProcedure = "/payup.v1.BalanceService/CompleteCheckout"
	RecordPaymentProcedure    = "/payup.v1.BalanceService/RecordPayment"

	ConfirmReminderProcedure = "/payup.v1.ReminderService/ConfirmReminder"
)

// PublicProcedures authenticate with a signed link or a password instead of
// a session token.
var PublicProcedures = []string{
	SignInProcedure,
	OpenPayLinkProcedure,
	ConfirmReminderProcedure,
}

// Client calls every PayUp procedure.
type Client struct {
	signIn *connect.Client[SignInRequest, SignInResponse]

	getProfile    *connect.Client[GetProfileRequest, ProfileResponse]
	updateProfile *connect.Client[UpdateProfileRequest, ProfileResponse]

	createRequest  *connect.Client[CreateRequestRequest, RequestResponse]
	getRequest     *connect.Client[GetRequestRequest, RequestResponse]
	listRequests   *connect.Client[ListRequestsRequest, ListRequestsResponse]
	updateRequest  *connect.Client[UpdateRequestRequest, RequestResponse]
	deleteRequest  *connect.Client[DeleteRequestRequest, DeleteRequestResponse]
	publishRequest *connect.Client[PublishRequestRequest, RequestResponse]

	listBalances     *connect.Client[ListBalancesRequest, ListBalancesResponse]
	issuePayLink     *connect.Client[IssuePayLinkRequest, PayLinkResponse]
	openPayLink      *connect.Client[OpenPayLinkRequest, PayPageResponse]
	completeCheckout *connect.Client[CompleteCheckoutRequest, CompleteCheckoutResponse]
	recordPayment    *connect.Client[RecordPaymentRequest, RecordPaymentResponse]

	confirmReminder *connect.Client[ConfirmReminderRequest, ConfirmReminderResponse]
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &Client{
		signIn: connect.NewClient[SignInRequest, SignInResponse](httpClient, baseURL+SignInProcedure, opts...),

		getProfile:    connect.NewClient[GetProfileRequest, ProfileResponse](httpClient, baseURL+GetProfileProcedure, opts...),
		updateProfile: connect.NewClient[UpdateProfileRequest, ProfileResponse](httpClient, baseURL+UpdateProfileProcedure, opts...),

		createRequest:  connect.NewClient[CreateRequestRequest, RequestResponse](httpClient, baseURL+CreateRequestProcedure, opts...),
		getRequest:     connect.NewClient[GetRequestRequest, RequestResponse](httpClient, baseURL+GetRequestProcedure, opts...),
		listRequests:   connect.NewClient[ListRequestsRequest, ListRequestsResponse](httpClient, baseURL+ListRequestsProcedure, opts...),
		updateRequest:  connect.NewClient[UpdateRequestRequest, RequestResponse](httpClient, baseURL+UpdateRequestProcedure, opts...),
		deleteRequest:  connect.NewClient[DeleteRequestRequest, DeleteRequestResponse](httpClient, baseURL+DeleteRequestProcedure, opts...),
		publishRequest: connect.NewClient[PublishRequestRequest, RequestResponse](httpClient, baseURL+PublishRequestProcedure, opts...),

		listBalances:     connect.NewClient[ListBalancesRequest, ListBalancesResponse](httpClient, baseURL+ListBalancesProcedure, opts...),
		issuePayLink:     connect.NewClient[IssuePayLinkRequest, PayLinkResponse](httpClient, baseURL+IssuePayLinkProcedure, opts...),
		openPayLink:      connect.NewClient[OpenPayLinkRequest, PayPageResponse](httpClient, baseURL+OpenPayLinkProcedure, opts...),
		completeCheckout: connect.NewClient[CompleteCheckoutRequest, CompleteCheckoutResponse](httpClient, baseURL+CompleteCheckoutProcedure, opts...),
		recordPayment:    connect.NewClient[RecordPaymentRequest, RecordPaymentResponse](httpClient, baseURL+RecordPaymentProcedure, opts...),

		confirmReminder: connect.NewClient[ConfirmReminderRequest, ConfirmReminderResponse](httpClient, baseURL+ConfirmReminderProcedure, opts...),
	}
}

func (c *Client) SignIn(ctx context.Context, req *connect.Request[SignInRequest]) (*connect.Response[SignInResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}

func (c *Client) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *Client) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}

func (c *Client) CreateRequest(ctx context.Context, req *connect.Request[CreateRequestRequest]) (*connect.Response[RequestResponse], error) {
	return c.createRequest.CallUnary(ctx, req)
}

func (c *Client) GetRequest(ctx context.Context, req *connect.Request[GetRequestRequest]) (*connect.Response[RequestResponse], error) {
	return c.getRequest.CallUnary(ctx, req)
}

func (c *Client) ListRequests(ctx context.Context, req *connect.Request[ListRequestsRequest]) (*connect.Response[ListRequestsResponse], error) {
	return c.listRequests.CallUnary(ctx, req)
}

func (c *Client) UpdateRequest(ctx context.Context, req *connect.Request[UpdateRequestRequest]) (*connect.Response[RequestResponse], error) {
	return c.updateRequest.CallUnary(ctx, req)
}

func (c *Client) DeleteRequest(ctx context.Context, req *connect.Request[DeleteRequestRequest]) (*connect.Response[DeleteRequestResponse], error) {
	return c.deleteRequest.CallUnary(ctx, req)
}

func (c *Client) PublishRequest(ctx context.Context, req *connect.Request[PublishRequestRequest]) (*connect.Response[RequestResponse], error) {
	return c.publishRequest.CallUnary(ctx, req)
}

func (c *Client) ListBalances(ctx context.Context, req *connect.Request[ListBalancesRequest]) (*connect.Response[ListBalancesResponse], error) {
	return c.listBalances.CallUnary(ctx, req)
}

func (c *Client) IssuePayLink(ctx context.Context, req *connect.Request[IssuePayLinkRequest]) (*connect.Response[PayLinkResponse], error) {
	return c.issuePayLink.CallUnary(ctx, req)
}

func (c *Client) OpenPayLink(ctx context.Context, req *connect.Request[OpenPayLinkRequest]) (*connect.Response[PayPageResponse], error) {
	return c.openPayLink.CallUnary(ctx, req)
}

func (c *Client) CompleteCheckout(ctx context.Context, req *connect.Request[CompleteCheckoutRequest]) (*connect.Response[CompleteCheckoutResponse], error) {
	return c.completeCheckout.CallUnary(ctx, req)
}

func (c *Client) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[RecordPaymentResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *Client) ConfirmReminder(ctx context.Context, req *connect.Request[ConfirmReminderRequest]) (*connect.Response[ConfirmReminderResponse], error) {
	return c.confirmReminder.CallUnary(ctx, req)
}
