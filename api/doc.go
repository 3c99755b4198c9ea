// Package api serves entity repositories over HTTP with echo: bearer token
// scoping, request ids, access logs and prometheus metrics.
package api
