package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyIdentifier = "identifier"
	KeyOwner      = "owner"
	KeyRepo       = "repository"
	KeyCommit     = "commit"
	KeyKey        = "key"
	KeyBucket     = "bucket"
	KeyStrategy   = "strategy"
	KeyFormat     = "format"
	KeyResource   = "resource"
	KeyGenerator  = "generator"
	KeyStage      = "stage"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyMethod     = "method"
	KeyRequestID  = "request_id"
	KeyCount      = "count"
	KeyError      = "error"
	KeyUserAgent  = "user_agent"
	KeyRemote     = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Identifier(id string) slog.Attr  { return slog.String(KeyIdentifier, id) }
func Owner(o string) slog.Attr        { return slog.String(KeyOwner, o) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Bucket(b string) slog.Attr       { return slog.String(KeyBucket, b) }
func Strategy(s string) slog.Attr     { return slog.String(KeyStrategy, s) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Resource(r string) slog.Attr     { return slog.String(KeyResource, r) }
func Generator(g string) slog.Attr    { return slog.String(KeyGenerator, g) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemote, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
