/*
Package workers provides utilities for determining optimal worker pool sizes
in containerized environments.

Go 1.19+ sets GOMAXPROCS from container CPU limits, while runtime.NumCPU()
still reports the host machine's CPU count. Sizing pools from GOMAXPROCS
keeps the encode pipeline honest about what it can actually run.

	// CPU-intensive work (image resizing and encoding)
	numWorkers := workers.ForCPU(8) // max 8 workers

	// I/O-bound work (object-store uploads)
	numWorkers := workers.ForIO(16) // max 16 workers

	// Mixed workloads
	numWorkers := workers.ForMixed(12)

All functions respect the ENCODE_WORKERS environment variable, allowing
operators to override the automatic calculation.
*/
package workers
