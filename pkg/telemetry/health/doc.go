// Package health implements liveness and readiness probes for the admin
// listener.
//
// Liveness answers 200 as long as the process can serve HTTP at all.
// Readiness runs every registered check concurrently, each bounded by the
// checker's timeout, and answers 503 when any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("server", health.ServerRunning(srv))
//	checker.RegisterCheck("access_log", health.StorageReachable(store))
//	mux.Handle("/ready", checker.ReadinessHandler())
//
// A server that has not finished binding its listeners, or has begun
// shutting down, is not ready.
package health
