// Package cache keeps encoded query pages per entity so listings of cached
// entities skip the database until a write or an explicit flush invalidates
// them.
package cache
