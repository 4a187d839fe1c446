package pipeline_test

import "github.com/travelintel/dealengine/internal/obs"

// sharedMetrics is constructed once for the whole package's test binary:
// promauto registers every collector with the default registry, so a
// second obs.NewMetrics() call in the same process would panic on
// duplicate registration.
var sharedMetrics = obs.NewMetrics()

func testMetrics() *obs.Metrics {
	return sharedMetrics
}
