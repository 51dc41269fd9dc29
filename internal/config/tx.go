package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

// Keys accepted in the "vars" section of a webhook envelope.
const (
	VarAPIURL           = "api_url"
	VarPreConvertBucket = "pre_convert_bucket"
	VarCDNBucket        = "cdn_bucket"
	VarGogsURL          = "gogs_url"
	VarGogsUserToken    = "gogs_user_token"
)

// WithVars returns a copy of the tx context with envelope vars applied on top.
// Non-string and empty values are ignored.
func (t TXConfig) WithVars(vars map[string]any) TXConfig {
	out := t
	for key, raw := range vars {
		v, ok := raw.(string)
		if !ok || v == "" {
			continue
		}
		switch key {
		case VarAPIURL:
			out.APIURL = strings.TrimRight(v, "/")
		case VarPreConvertBucket:
			out.PreConvertBucket = v
		case VarCDNBucket:
			out.CDNBucket = v
		case VarGogsURL:
			out.GogsURL = strings.TrimRight(v, "/")
		case VarGogsUserToken:
			out.GogsUserToken = v
		}
	}
	return out
}

// RequireSubmit verifies every field the webhook flow depends on is present.
func (t TXConfig) RequireSubmit() error {
	required := []struct {
		name  string
		value string
	}{
		{VarAPIURL, t.APIURL},
		{VarPreConvertBucket, t.PreConvertBucket},
		{VarCDNBucket, t.CDNBucket},
		{VarGogsURL, t.GogsURL},
		{VarGogsUserToken, t.GogsUserToken},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.name)
		}
	}
	return nil
}

// RequireComplete verifies the callback flow can locate its output bucket.
func (t TXConfig) RequireComplete() error {
	if strings.TrimSpace(t.CDNBucket) == "" {
		return missingField(VarCDNBucket)
	}
	return nil
}

// JobURL is the conversion service endpoint that accepts new jobs.
func (t TXConfig) JobURL() string {
	return t.APIURL + "/tx/job"
}

// CallbackURL is where the conversion service reports completion.
func (t TXConfig) CallbackURL() string {
	return t.APIURL + "/client/callback"
}

func missingField(name string) error {
	return errors.ConfigError(fmt.Sprintf("%s not found in configuration", name)).
		WithContext("field", name).
		Build()
}
