package common

// AuthorizationHeaderName is the gRPC metadata key carrying the operator
// access token on admin calls.
const AuthorizationHeaderName = "authorization"

// DefaultAuditLogFile is the append-only audit file used when no path is
// configured explicitly.
const DefaultAuditLogFile = "chat_logs.enc"
