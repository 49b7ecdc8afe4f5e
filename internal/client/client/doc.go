// Package client contains the storefront's building blocks for talking to the
// outside world and to its own durable storage.
//
// # Overview
//
//  1. Client, the contract of the remote auth API, and HTTPClient, its JSON
//     implementation (POST /auth/register, POST /auth/login,
//     POST /auth/logout, GET /auth/me, PUT /auth/users/role). Non-2xx
//     responses carry {"error": "..."} and are mapped to the sentinels in
//     package common.
//  2. HealthChecker, a gRPC health probe used as the liveness check for
//     remote mode.
//  3. InitDatabase and RunMigrations, which open the sqlite database that
//     stands in for browser storage and apply the embedded goose migrations.
//
// # Error Handling
//
// Transport failures and 5xx responses match ErrUnavailable and
// common.ErrNetworkFailure. Requests are not retried.
package client
