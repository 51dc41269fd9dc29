package config

import "git.home.luguber.info/inful/txbridge/internal/foundation/normalization"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var (
	storageBackends = normalization.New("storage.backend", map[string]StorageBackend{
		"s3":    StorageS3,
		"minio": StorageS3,
		"fs":    StorageFS,
		"file":  StorageFS,
	})
	fetchModes = normalization.New("fetch.mode", map[string]FetchMode{
		"archive": FetchArchive,
		"git":     FetchGit,
	})
	retryBackoffs = normalization.New("retry_backoff", map[string]RetryBackoffMode{
		"fixed":       RetryBackoffFixed,
		"linear":      RetryBackoffLinear,
		"exponential": RetryBackoffExponential,
	})
)

// NormalizeRetryBackoff converts user input (case-insensitive) into a typed
// mode, returning empty string for unknown values.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	mode, _ := retryBackoffs.Lookup(raw)
	return mode
}
