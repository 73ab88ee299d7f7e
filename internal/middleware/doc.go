// Package middleware provides the HTTP middleware chain: W3C access logging
// with log-injection sanitising, Prometheus request metrics labelled by
// route template, and gzip compression of API responses.
package middleware
