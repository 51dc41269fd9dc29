// Package txjob submits conversion jobs to the tX conversion service.
//
// A submission packs a preprocessed tree into a zip, uploads it to the
// pre-convert bucket and posts a Descriptor to {api_url}/tx/job. The
// service answers with a Job, which is also the shape of the completion
// callback it sends later.
package txjob

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

// OutputFormatHTML is the only output format the bridge requests.
const OutputFormatHTML = "html"

// Descriptor is the job request body.
type Descriptor struct {
	Identifier   string `json:"identifier"`
	UserToken    string `json:"user_token"`
	ResourceType string `json:"resource_type"`
	InputFormat  string `json:"input_format"`
	OutputFormat string `json:"output_format"`
	Source       string `json:"source"`
	Callback     string `json:"callback"`
}

// Job is a job as reported by the conversion service, both in the
// submission response and in the completion callback.
type Job struct {
	JobID         string   `json:"job_id,omitempty"`
	Identifier    string   `json:"identifier"`
	User          string   `json:"user,omitempty"`
	ConvertModule string   `json:"convert_module,omitempty"`
	ResourceType  string   `json:"resource_type,omitempty"`
	InputFormat   string   `json:"input_format,omitempty"`
	OutputFormat  string   `json:"output_format,omitempty"`
	Source        string   `json:"source,omitempty"`
	Output        string   `json:"output,omitempty"`
	CDNBucket     string   `json:"cdn_bucket,omitempty"`
	CDNFile       string   `json:"cdn_file,omitempty"`
	Callback      string   `json:"callback,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	ETA           string   `json:"eta,omitempty"`
	StartedAt     *string  `json:"started_at"`
	EndedAt       *string  `json:"ended_at"`
	Success       bool     `json:"success"`
	Status        string   `json:"status"`
	Message       string   `json:"message,omitempty"`
	Log           []string `json:"log"`
	Warnings      []string `json:"warnings"`
	Errors        []string `json:"errors"`
}

// Normalize replaces absent log, warnings and errors with empty lists.
func (j *Job) Normalize() {
	if j.Log == nil {
		j.Log = []string{}
	}
	if j.Warnings == nil {
		j.Warnings = []string{}
	}
	if j.Errors == nil {
		j.Errors = []string{}
	}
}

// CommitPrefix truncates a commit id to n characters. A non-positive n
// uses config.DefaultCommitPrefixLength. Submission and callback both go
// through here so identifiers always agree.
func CommitPrefix(commit string, n int) string {
	if n <= 0 {
		n = config.DefaultCommitPrefixLength
	}
	if len(commit) > n {
		return commit[:n]
	}
	return commit
}

// Identifier builds the owner/repo/commitPrefix correlation key.
func Identifier(owner, repo, commit string, n int) string {
	return fmt.Sprintf("%s/%s/%s", owner, repo, CommitPrefix(commit, n))
}

// ParseIdentifier splits an identifier into owner, repo and commit prefix.
// Exactly three non-empty segments are required.
func ParseIdentifier(identifier string) (owner, repo, commit string, err error) {
	parts := strings.Split(strings.TrimSpace(identifier), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", errors.ValidationError("identifier must have the form owner/repo/commit").
			WithContext("identifier", identifier).
			Build()
	}
	return parts[0], parts[1], parts[2], nil
}
