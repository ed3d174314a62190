package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	SamplerAlways      = "always"
	SamplerNever       = "never"
	SamplerRatio       = "ratio"
	SamplerParentRatio = "parent_ratio"
)

// createSampler maps a strategy name to an SDK sampler.
//
// "ratio" samples by trace ID hash and ignores the caller's decision;
// "parent_ratio" follows the sampled flag of an incoming traceparent and
// falls back to the ratio for root spans.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	switch strategy {
	case SamplerAlways:
		return sdktrace.AlwaysSample(), nil
	case SamplerNever:
		return sdktrace.NeverSample(), nil
	case SamplerRatio, SamplerParentRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		base := sdktrace.TraceIDRatioBased(ratio)
		if strategy == SamplerRatio {
			return base, nil
		}
		return sdktrace.ParentBased(base), nil
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio, parent_ratio)", strategy)
	}
}
