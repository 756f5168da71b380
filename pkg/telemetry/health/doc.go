// Package health provides liveness and readiness probes for `tabula serve`.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("catalog", health.PingCheck(store), true)
//	checker.Register("files", health.PingCheck(files), false)
//	mux.Handle("GET /ready", checker.ReadinessHandler())
package health
