// Package types holds the request, row, pagination and envelope types shared
// by the query engine, the repository and the HTTP layer.
package types
