//go:build !linux && !darwin

package telemetry

// freeDiskBytes has no portable implementation outside linux/darwin; it
// reports zero rather than failing the sampler loop.
func freeDiskBytes(path string) (uint64, error) {
	return 0, nil
}
