// Package listing models marketplace listings as a closed set of kinds with
// per-kind default field values applied at construction time.
package listing
