// Package workspace manages per-invocation scratch directories.
//
// Every webhook or callback invocation gets its own directory under the base
// directory (e.g. txbridge-submit-3f2a...). The invocation removes it when it
// finishes; Sweep removes directories left behind by crashed invocations.
package workspace
