// Package ordinate provides the exact decimal type used for positions,
// distances and scale factors.
//
// All arithmetic goes through github.com/cockroachdb/apd/v3. Sums,
// differences and products are exact; only quotients are rounded, to 34
// significant digits. Native floats are never used for ordinate math: a
// clock group sums many small sub-steps and compares the remainder against
// zero, and binary rounding error would make that loop overshoot or never
// terminate.
//
// This package imports nothing internal; every other package may import it.
package ordinate
