// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing execution contexts and fan-in inputs. These
// helpers are intentionally minimal and not intended for production usage.
package testutil
