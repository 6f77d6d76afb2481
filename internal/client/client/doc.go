// Package client talks to the remote file service.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): upload of
//     ciphertext, existence and metadata queries, download, owner operations
//     (info, download limit, delete, password) and the encrypted file list.
//  2. An HTTP implementation (see HTTPClient) that maps status codes to the
//     sentinel errors of package common.
//
// # Error Handling
//
// 401 responses surface as *ChallengeError, which wraps common.ErrUnauthorized
// and carries the fresh nonce from the WWW-Authenticate header so the caller
// can sign again. 404 maps to common.ErrNotFound. Transport failures and
// unexpected statuses wrap common.ErrNetwork. Cancellation of the request
// context is reported as the context error.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context; no timeouts are imposed here.
package client
