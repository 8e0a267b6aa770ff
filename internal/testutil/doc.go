// Package testutil contains helper agents and message types used across tests
// to reduce boilerplate when exercising the runtime. These helpers are
// intentionally minimal and not intended for production usage.
package testutil
