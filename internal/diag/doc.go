// Package diag defines the diagnostic model shared by all analyses:
// severities, stable numeric codes, the Bag accumulator, and the Reporter
// contract. Violations are data; analyses never abort on them.
package diag
