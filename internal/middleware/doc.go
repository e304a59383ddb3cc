// Package middleware provides HTTP middleware for the conversion service.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with request body size
//   - Prometheus request metrics with bounded path labels
//   - gzip compression of JSON and text responses; downloads pass through
//     untouched
package middleware
