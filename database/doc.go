// Package database manages the bun connection (mysql, postgres or sqlite),
// its query hooks for logging, slow queries and prometheus metrics, SQL
// error classification and the check of entity descriptors against the
// live schema.
package database
