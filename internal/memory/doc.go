// Package memory keeps the converter's Go heap inside its container
// memory limit.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO.
// The default ratio leaves half of the limit to FFmpeg and whisper, which
// run as child processes and are charged to the same cgroup.
//
// A [Monitor] samples heap usage. Once usage passes the critical watermark
// the readiness check fails until usage drops below the high watermark,
// which keeps new uploads away from an instance that is close to being
// OOM-killed.
//
// Kubernetes example:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.4"
package memory
