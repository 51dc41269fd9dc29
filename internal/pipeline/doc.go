// Package pipeline runs the two bridge flows end to end.
//
// Submit handles a forge push: it fetches the repository, resolves its
// manifest, runs the dispatched preprocessing strategy, submits the job and
// records the submission. Complete handles the conversion service callback:
// it fetches the converted output and merges the result into the stored
// records. Each invocation works in its own workspace and shares no mutable
// domain state with concurrent invocations.
package pipeline
