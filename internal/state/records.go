package state

import (
	"fmt"

	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

// File names inside a commit prefix.
const (
	BuildLogFile = "build_log.json"
	ManifestFile = "manifest.json"
	ProjectFile  = "project.json"
)

// BuildLog is the per-commit record: the job as the conversion service
// reported it plus the repository and commit it was built from.
type BuildLog struct {
	txjob.Job

	RepoName      string `json:"repo_name"`
	RepoOwner     string `json:"repo_owner"`
	CommitID      string `json:"commit_id"`
	CommittedBy   string `json:"committed_by,omitempty"`
	CommitURL     string `json:"commit_url,omitempty"`
	CompareURL    string `json:"compare_url,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
}

// Normalize applies the decode-boundary defaults.
func (b *BuildLog) Normalize() {
	b.Job.Normalize()
}

// CommitEntry is one commit in a ProjectIndex. StartedAt and EndedAt are
// null until the job reports them.
type CommitEntry struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Status    string  `json:"status"`
	Success   bool    `json:"success"`
	StartedAt *string `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
}

// EntryFromJob builds the commit entry for id from a job.
func EntryFromJob(id string, job txjob.Job) CommitEntry {
	return CommitEntry{
		ID:        id,
		CreatedAt: job.CreatedAt,
		Status:    job.Status,
		Success:   job.Success,
		StartedAt: job.StartedAt,
		EndedAt:   job.EndedAt,
	}
}

// ProjectIndex is the per-repository record listing known commits.
type ProjectIndex struct {
	User    string        `json:"user"`
	Repo    string        `json:"repo"`
	RepoURL string        `json:"repo_url"`
	Commits []CommitEntry `json:"commits"`
}

// Normalize applies the decode-boundary defaults.
func (p *ProjectIndex) Normalize() {
	if p.Commits == nil {
		p.Commits = []CommitEntry{}
	}
}

// ReplaceCommit removes every entry with entry's id and appends entry, so
// an id appears at most once and its latest entry is last.
func (p *ProjectIndex) ReplaceCommit(entry CommitEntry) {
	kept := make([]CommitEntry, 0, len(p.Commits)+1)
	for _, c := range p.Commits {
		if c.ID != entry.ID {
			kept = append(kept, c)
		}
	}
	p.Commits = append(kept, entry)
}

// Commit returns the entry for id.
func (p *ProjectIndex) Commit(id string) (CommitEntry, bool) {
	for _, c := range p.Commits {
		if c.ID == id {
			return c, true
		}
	}
	return CommitEntry{}, false
}

// CommitPrefixKey is the key prefix of every artifact of one commit. It
// ends with a slash so a prefix never matches a longer commit id.
func CommitPrefixKey(owner, repo, commit string) string {
	return fmt.Sprintf("u/%s/%s/%s/", owner, repo, commit)
}

// BuildLogKey is the key of a commit's build log.
func BuildLogKey(owner, repo, commit string) string {
	return CommitPrefixKey(owner, repo, commit) + BuildLogFile
}

// ProjectKey is the key of a repository's project index.
func ProjectKey(owner, repo string) string {
	return fmt.Sprintf("u/%s/%s/%s", owner, repo, ProjectFile)
}
