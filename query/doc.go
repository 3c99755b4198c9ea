// Package query compiles flat request parameters into a query Intent over
// one entity and renders intents as bun select, update and delete queries.
package query
