// Package scheduler places a fixed set of meetings into candidate time slots.
//
// A run is a single pipeline: availability windows are carved into
// overlapping half-hour-offset slots, every (member, slot) pair is resolved
// against the members' busy intervals, the scheduling rules are encoded as a
// weighted MaxSAT formula, a solver.Solver finds the cheapest model and the
// model is decoded into meeting bindings with attendance diagnostics.
//
// Structural rules (one slot per meeting, one meeting per slot, no
// overlapping use of a window) are hard. Attendance rules are soft clauses
// weighted by model.PenaltyWeights.
package scheduler
