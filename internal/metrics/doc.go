// Package metrics computes time and cost savings for workflow proposals and
// derives the dashboard views over a snapshot of them: aggregate statistics and
// the filtered, sorted list.
//
// Everything here is a pure function of its arguments. Callers pass the
// snapshot and the hourly rate explicitly; nothing is cached between calls and
// input slices are never modified.
package metrics
