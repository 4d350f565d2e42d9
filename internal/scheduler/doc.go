// Package scheduler runs recurring jobs on interval or wall-clock
// triggers. Jobs form a directed acyclic graph; when a trigger fires,
// the job and its dependents run in topological order, and dependents
// of a failed job are skipped.
package scheduler
