// Package client talks to the remote registry.
//
// # Overview
//
// The package provides:
//  1. The Client interface: registration and login, Ping, identity lookup,
//     profile point lookups and bulk fetches, permission evaluation and
//     share-event recording.
//  2. GRPCClient, the gRPC implementation. It injects the access token via
//     an interceptor, transparently refreshes expired tokens and maps gRPC
//     status codes to sentinel errors.
//  3. InitDatabase and RunMigrations, which open the local SQLite cache and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Status codes map to sentinels callers match with errors.Is:
//
//	Unavailable                       ErrUnavailable (also common.ErrOffline)
//	DeadlineExceeded                  common.ErrTimeout
//	Unauthenticated, PermissionDenied ErrUnauthorized
//	NotFound                          common.ErrorNotFound
//	ResourceExhausted                 common.ErrRateLimited
//
// Anything else is wrapped as "rpc error: ...".
//
// GRPCClient is safe for concurrent use; token state is guarded.
package client
