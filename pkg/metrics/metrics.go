// Package metrics defines the metric hooks used by the lifecycle and admin
// packages.
//
// Every interface may be nil. The helper functions check for nil so callers
// can pass nil to disable a metric set with zero overhead:
//
//	m := promexport.NewLifecycleMetrics(reg, "srvd") // with metrics
//	var m metrics.LifecycleMetrics                  // without metrics
//	metrics.ObservePhase(m, "main", d, err != nil)   // safe either way
package metrics

import "time"

// LifecycleMetrics records phase execution and shutdown requests.
type LifecycleMetrics interface {
	// ObservePhase records one finished phase. failed is true if its hook returned an error.
	ObservePhase(phase string, duration time.Duration, failed bool)

	// SetPhase publishes the phase currently executing.
	SetPhase(phase string)

	// ObserveShutdownRequest counts the effective shutdown request by source.
	ObserveShutdownRequest(source string)
}

// AdminMetrics records admin HTTP traffic.
type AdminMetrics interface {
	ObserveRequest(route, method string, status int, duration time.Duration)
}

// ExportMetrics records final snapshot exports.
type ExportMetrics interface {
	ObserveExport(target string, duration time.Duration, err error)
}

// ObservePhase records a finished phase if m is non-nil.
func ObservePhase(m LifecycleMetrics, phase string, duration time.Duration, failed bool) {
	if m != nil {
		m.ObservePhase(phase, duration, failed)
	}
}

// SetPhase publishes the current phase if m is non-nil.
func SetPhase(m LifecycleMetrics, phase string) {
	if m != nil {
		m.SetPhase(phase)
	}
}

// ObserveShutdownRequest counts a shutdown request if m is non-nil.
func ObserveShutdownRequest(m LifecycleMetrics, source string) {
	if m != nil {
		m.ObserveShutdownRequest(source)
	}
}

// ObserveRequest records an admin request if m is non-nil.
func ObserveRequest(m AdminMetrics, route, method string, status int, duration time.Duration) {
	if m != nil {
		m.ObserveRequest(route, method, status, duration)
	}
}

// ObserveExport records a snapshot export if m is non-nil.
func ObserveExport(m ExportMetrics, target string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveExport(target, duration, err)
	}
}
