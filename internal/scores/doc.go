// Package scores holds the pure rolling-window calculators behind every score
// sheet: GAP, QUANT, STD, S (position in range) and Z (standardised distance).
//
// Calculators never fail. A result that cannot be computed from the window is
// reported as undefined through the boolean return, and the caller leaves the
// cell empty so a later run can retry it.
//
// Integer scores round half away from zero on the shortest decimal form of the
// float, STD rounds the same way to two places. See RoundHalfUp.
package scores
