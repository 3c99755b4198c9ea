// Package sieve serves multi-tenant CRUD and dynamic queries over entities
// described at runtime. Service resolves the repository of an entity by name;
// the repository, query and schema packages hold the engine itself.
package sieve
