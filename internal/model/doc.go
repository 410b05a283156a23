// Package model owns the Floww event model.
//
// Ownership boundary:
// - note and message value types
// - message payload encoding
// - track and stream boundary markers
// - field validation
//
// Values are immutable once constructed. Nothing here performs I/O.
package model
