// Package errors provides the classified error primitives used across txbridge.
//
// Every failure that can reach an invocation boundary (webhook or callback) is a
// ClassifiedError whose category names one of the pipeline failure kinds:
//
//   - CategoryConfig: a required configuration field is missing
//   - CategoryManifest: no format could be resolved for the repository
//   - CategoryFetch / CategoryExpand: the upstream archive is unreachable or corrupt
//   - CategoryRemote: the conversion service rejected or failed the job request
//   - CategoryStorage: an object-store operation failed
//   - CategoryValidation: the incoming payload is missing a required field
//
// Example usage:
//
//	err := errors.FetchError("download failed").
//		WithCause(cause).
//		WithContext("url", archiveURL).
//		Build()
package errors
