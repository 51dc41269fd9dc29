// Package forge decodes the payloads that reach the bridge: Gogs push
// webhooks and conversion service callbacks, optionally wrapped in an
// API-gateway style {data, vars} envelope.
package forge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

// Envelope separates the event body from per-invocation variables.
type Envelope struct {
	Data json.RawMessage
	Vars map[string]any
	// Wrapped reports whether the body carried a "data" member.
	Wrapped bool
}

// DecodeEnvelope splits body into data and vars. A body without a "data"
// member is treated as bare data with no vars.
func DecodeEnvelope(body []byte) (Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Envelope{}, notFound("data")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return Envelope{}, errors.ValidationError("payload is not a JSON object").WithCause(err).Build()
	}
	data, ok := probe["data"]
	if !ok {
		return Envelope{Data: body}, nil
	}
	env := Envelope{Data: data, Wrapped: true}
	if raw, ok := probe["vars"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &env.Vars); err != nil {
			return Envelope{}, errors.ValidationError("vars must be an object").WithCause(err).Build()
		}
	}
	return env, nil
}

// User is a forge account reference.
type User struct {
	Username string `json:"username"`
}

// Commit is one commit of a push.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Author  User   `json:"author"`
}

// Repository identifies the pushed repository.
type Repository struct {
	Name     string `json:"name"`
	Owner    *User  `json:"owner"`
	HTMLURL  string `json:"html_url"`
	CloneURL string `json:"clone_url"`
}

type pushPayload struct {
	After      string      `json:"after"`
	Commits    []Commit    `json:"commits"`
	Repository *Repository `json:"repository"`
	Pusher     *User       `json:"pusher"`
	CompareURL string      `json:"compare_url"`
}

// Push is a validated push event reduced to what the bridge uses.
type Push struct {
	Owner         string
	Repo          string
	CommitID      string
	CommitURL     string
	CommitMessage string
	Pusher        string
	CompareURL    string
	CloneURL      string
}

// ParsePush decodes and validates a Gogs push payload.
func ParsePush(data []byte) (*Push, error) {
	var p pushPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.ValidationError("push payload is not valid JSON").WithCause(err).Build()
	}
	if p.After == "" {
		return nil, notFound("after")
	}
	if len(p.Commits) == 0 {
		return nil, notFound("commits")
	}
	if p.Repository == nil {
		return nil, notFound("repository")
	}
	if p.Repository.Name == "" {
		return nil, notFound("repository.name")
	}
	if p.Repository.Owner == nil || p.Repository.Owner.Username == "" {
		return nil, notFound("repository.owner.username")
	}

	// The commit matching "after", else the last one listed.
	commit := p.Commits[len(p.Commits)-1]
	for _, c := range p.Commits {
		if c.ID == p.After {
			commit = c
			break
		}
	}
	if commit.URL == "" {
		return nil, notFound("commits.url")
	}

	pusher := commit.Author.Username
	if p.Pusher != nil {
		pusher = p.Pusher.Username
	}

	return &Push{
		Owner:         p.Repository.Owner.Username,
		Repo:          p.Repository.Name,
		CommitID:      p.After,
		CommitURL:     commit.URL,
		CommitMessage: commit.Message,
		Pusher:        pusher,
		CompareURL:    p.CompareURL,
		CloneURL:      p.Repository.CloneURL,
	}, nil
}

// ArchiveURL is the zip download URL of the pushed commit: the commit URL
// with its /commit/ segment replaced by /archive/ and a .zip suffix.
func (p *Push) ArchiveURL() string {
	u := p.CommitURL
	if i := strings.LastIndex(u, "/commit/"); i >= 0 {
		u = u[:i] + "/archive/" + u[i+len("/commit/"):]
	}
	return u + ".zip"
}

// RequireForge rejects pushes whose commit does not live on gogsURL.
func (p *Push) RequireForge(gogsURL string) error {
	if gogsURL == "" || !strings.Contains(p.CommitURL, gogsURL) {
		return errors.ValidationError(fmt.Sprintf("repos can only belong to %s to use this webhook client", gogsURL)).
			WithContext("commit_url", p.CommitURL).
			Build()
	}
	return nil
}

// ParseCallback decodes a completion callback job. The identifier is required.
func ParseCallback(data []byte) (*txjob.Job, error) {
	var job txjob.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.ValidationError("callback payload is not valid JSON").WithCause(err).Build()
	}
	if strings.TrimSpace(job.Identifier) == "" {
		return nil, notFound("identifier")
	}
	return &job, nil
}

func notFound(field string) error {
	return errors.ValidationError(field+" not found in payload").
		WithContext("field", field).
		Build()
}
