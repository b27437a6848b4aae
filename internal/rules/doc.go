// Package rules holds the ticket routing and SLA decision logic: assignment
// rule resolution, least-loaded team selection, SLA deadlines and escalation
// planning.
//
// Every function here is a pure computation over snapshots supplied by the
// caller. Nothing reads storage, and "no decision" is reported through the
// boolean result rather than an error.
package rules
