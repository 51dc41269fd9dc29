// Package state keeps the durable per-commit and per-repository records of
// conversion jobs in the CDN bucket.
//
// Two records exist for every repository:
//
//	u/{owner}/{repo}/{commit}/build_log.json   one BuildLog per commit prefix
//	u/{owner}/{repo}/project.json              one ProjectIndex per repository
//
// The Synchronizer updates them at submission and at completion. Both
// entry points are read-modify-write sequences without compare-and-swap:
// two invocations racing on the same commit may lose an update. Callers
// are expected to serialize work per identifier.
package state
