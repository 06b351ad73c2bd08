// Package engine implements the statistical disclosure control pipeline
// for count tables: classification, rounding, primary suppression,
// complementary suppression, and audit assembly. The public entry point
// is pkg/sdc; this package holds the stages.
//
// The pipeline is a pure transform: it validates its inputs, clones the
// table, and either returns a fully transformed output or an error and no
// output at all. Identical inputs produce byte-identical outputs.
package engine
