/*
Package filesystem wraps os.Stat, os.Open and os.Remove with retry logic for
stale file handle errors (ESTALE), which show up when the data directory is
an NFS or other network mount.

Only ESTALE triggers a retry. Every other error is returned on the first
attempt. Retries back off exponentially from InitialBackoff (50ms) to
MaxBackoff (500ms), for at most MaxRetries (3) extra attempts.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

A [VolumeResolver] on the RetryConfig labels retry metrics with the storage
directory a path belongs to:

	cfg := filesystem.DefaultRetryConfig()
	cfg.VolumeResolver = filesystem.NewVolumeResolver(map[string]string{
	    "uploads": uploadDir,
	    "work":    workDir,
	    "outputs": outputDir,
	})
*/
package filesystem
