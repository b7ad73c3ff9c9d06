// Package id provides identifier generation for stub mappings and journal entries.
//
// Mapping ids are UUID v4 strings so they can be supplied by clients in mapping
// documents and round-trip through the admin API unchanged.
package id
