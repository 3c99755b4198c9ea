// Package repository runs compiled query intents and the write paths of one
// entity: CRUD with tenant stamping, soft delete toggling, relation
// reconciliation, upserts and cached pagination.
package repository
