package txjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/txbridge/internal/archive"
	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/storage"
)

// ArchivePrefix is the key prefix of uploaded archives in the pre-convert bucket.
const ArchivePrefix = "preconvert/"

// maxResponseBytes bounds how much of a service response is read.
const maxResponseBytes = 4 << 20

// Request describes one submission.
type Request struct {
	Identifier   string
	ResourceType string
	InputFormat  string
	// OutDir is the preprocessed tree to pack.
	OutDir string
	// Manifest is added to the archive as manifest.json when OutDir has none.
	Manifest []byte
	// WorkDir receives the archive file.
	WorkDir string
}

// Submission is the outcome of a successful submission.
type Submission struct {
	Descriptor Descriptor
	Job        Job
	ArchiveKey string
	Entries    int
}

// Submitter packs, uploads and submits conversion jobs.
type Submitter struct {
	tx     config.TXConfig
	store  storage.Store
	client *http.Client
	newID  func() string
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient overrides the client used to reach the conversion service.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) { s.client = c }
}

// WithIDGenerator overrides the archive name generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Submitter) { s.newID = fn }
}

// NewSubmitter creates a submitter for tx bound to the pre-convert bucket store.
func NewSubmitter(tx config.TXConfig, store storage.Store, opts ...Option) *Submitter {
	s := &Submitter{
		tx:     tx,
		store:  store,
		client: &http.Client{Timeout: tx.RequestTimeoutDuration()},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceURL is the public URL the conversion service downloads key from.
func (s *Submitter) SourceURL(key string) string {
	base := s.tx.SourceURLBase
	if base == "" {
		base = config.DefaultSourceURLBase
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), s.tx.PreConvertBucket, key)
}

// Submit packs req.OutDir, uploads it and posts the job request.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Submission, error) {
	name := s.newID() + ".zip"
	archivePath := filepath.Join(req.WorkDir, name)

	extra := map[string][]byte{}
	if len(req.Manifest) > 0 {
		extra["manifest.json"] = req.Manifest
	}
	entries, err := archive.Pack(ctx, req.OutDir, archivePath, extra)
	if err != nil {
		return nil, errors.FileSystemError("failed to pack preprocessed files").
			WithCause(err).
			WithContext("dir", req.OutDir).
			Build()
	}
	defer func() { _ = os.Remove(archivePath) }()

	key := ArchivePrefix + name
	if err := s.store.PutFile(ctx, archivePath, key, 0); err != nil {
		return nil, errors.StorageError("failed to upload archive").
			WithCause(err).
			WithContext("bucket", s.store.Bucket()).
			WithContext("key", key).
			Build()
	}
	slog.Info("Uploaded pre-convert archive",
		logfields.Bucket(s.store.Bucket()),
		logfields.Key(key),
		logfields.Count(entries))

	desc := Descriptor{
		Identifier:   req.Identifier,
		UserToken:    s.tx.GogsUserToken,
		ResourceType: req.ResourceType,
		InputFormat:  req.InputFormat,
		OutputFormat: OutputFormatHTML,
		Source:       s.SourceURL(key),
		Callback:     s.tx.CallbackURL(),
	}
	job, err := s.Post(ctx, desc)
	if err != nil {
		return nil, err
	}
	return &Submission{Descriptor: desc, Job: *job, ArchiveKey: key, Entries: entries}, nil
}

// response is the body of a job request reply.
type response struct {
	Job          *Job   `json:"job"`
	ErrorMessage string `json:"errorMessage"`
}

// Post sends desc to the job endpoint and returns the created job.
func (s *Submitter) Post(ctx context.Context, desc Descriptor) (*Job, error) {
	body, err := json.Marshal(desc)
	if err != nil {
		return nil, errors.InternalError("failed to encode job request").WithCause(err).Build()
	}
	url := s.tx.JobURL()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.RemoteError("failed to create job request").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "txbridge/1.0")

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, errors.RemoteError("unable to reach the conversion service").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.RemoteError("failed to read conversion service response").
			WithCause(err).
			WithContext("status", resp.StatusCode).
			Build()
	}
	slog.Debug("Conversion service responded",
		logfields.URL(url),
		logfields.Status(resp.Status),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	var parsed response
	decodeErr := json.Unmarshal(raw, &parsed)

	if parsed.ErrorMessage != "" {
		return nil, errors.RemoteError(parsed.ErrorMessage).
			WithContext("status", resp.StatusCode).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if msg == "" {
			msg = resp.Status
		}
		return nil, errors.RemoteError(msg).
			WithContext("status", resp.StatusCode).
			Build()
	}
	if decodeErr != nil {
		return nil, errors.RemoteError("conversion service returned an unreadable response").
			WithCause(decodeErr).
			Build()
	}
	if parsed.Job == nil {
		return nil, errors.RemoteError("conversion service did not return any info about the job request").Build()
	}
	parsed.Job.Normalize()
	return parsed.Job, nil
}
