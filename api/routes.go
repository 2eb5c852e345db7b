package api

// Auth endpoint paths, relative to the API base URL. Shared between the
// client and the development stub server.
const (
	RouteRegister           = "/auth/register"
	RouteLogin              = "/auth/login"
	RouteRefresh            = "/auth/refresh"
	RouteLogout             = "/auth/logout"
	RouteMe                 = "/auth/me"
	RouteStatus             = "/auth/status"
	RouteVerifyEmail        = "/auth/verify-email"
	RouteResendVerification = "/auth/resend-verification"
)

// CredentialRoutes are the endpoints that mint, exchange or revoke
// credentials. A 401 from any of them means the presented credentials are
// bad, not that an access token expired, so the request pipeline never runs
// its refresh-and-retry recovery for them.
var CredentialRoutes = []string{
	RouteRegister,
	RouteLogin,
	RouteRefresh,
	RouteLogout,
	RouteVerifyEmail,
	RouteResendVerification,
}
