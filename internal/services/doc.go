// Package services holds the read side behind the HTTP API.
//
// ScoreService lists configured category workbooks and serves persisted
// score sheets, optionally cut to a date range or to one entity. It never
// computes or writes scores; that is the job of the operations package.
// HealthService answers liveness, readiness and version probes.
package services
