// Package telemetry bundles logging, metrics, tracing and health checks
// behind one constructor so the command wires them in a single call:
//
//	tel, err := telemetry.New(cfg.Telemetry, version)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
// The subpackages can be used on their own.
package telemetry
