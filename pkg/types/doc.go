// Package types defines the table model, rule sets, audit record, and
// standard error types for statistical disclosure control of aggregated
// count tables.
package types
