package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AnonymousCaller is used in place of a caller id when nobody is signed in.
const AnonymousCaller = "anon"
