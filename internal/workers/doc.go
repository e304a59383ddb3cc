/*
Package workers sizes the thread hint passed to external tools.

Go 1.19+ sets GOMAXPROCS from container CPU limits, while runtime.NumCPU
still reports host CPUs. Every helper here reads GOMAXPROCS so a converter
running in a 2-CPU pod never asks FFmpeg for 64 threads:

	threads := workers.ToolThreads(cfg.FFmpegThreads)

The hint is per invocation. Concurrent requests are bounded separately by
a [Limiter], which handlers acquire before running a job:

	jobs := workers.NewLimiter(cfg.MaxConcurrentJobs)
	release, err := jobs.Acquire(r.Context())
*/
package workers
