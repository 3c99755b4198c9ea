// Package schema declares entity descriptors: the static per-entity field
// type map, tenant and soft-delete flags, searchable fields and relations,
// collected in a Registry validated once at startup.
package schema
