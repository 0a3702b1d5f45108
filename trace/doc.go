// Package trace contains all the types provided for tracing within the resp
// package. With tracing a user is able to pull out fine-grained runtime events
// as they happen, which is useful for gathering metrics, logging, performance
// analysis, etc...
//
// All callbacks are called synchronously from within the traced method, so
// they should not block.
package trace
