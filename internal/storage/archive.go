package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/issuedesk/apiserver/types"
)

const deletedIssuePrefix = "issues/deleted"

// IssueArchive keeps a JSON copy of every permanently deleted issue.
type IssueArchive struct {
	storage *Storage
	now     func() time.Time
}

func NewIssueArchive(storage *Storage) *IssueArchive {
	return &IssueArchive{storage: storage, now: time.Now}
}

// DeletedIssueKey returns the object key an issue is archived under.
func DeletedIssueKey(id string) string {
	return path.Join(deletedIssuePrefix, id+".json")
}

// ArchiveIssue writes issue to issues/deleted/<id>.json.
func (a *IssueArchive) ArchiveIssue(ctx context.Context, issue types.Issue) error {
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("encode issue %s: %w", issue.ID, err)
	}
	metadata := map[string]string{
		"issue-id":   issue.ID,
		"deleted-at": a.now().UTC().Format(time.RFC3339),
	}
	key := DeletedIssueKey(issue.ID)
	if err := a.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json", metadata); err != nil {
		return fmt.Errorf("archive issue %s: %w", issue.ID, err)
	}
	return nil
}

// PurgeIssue removes the archived copy of an issue. A missing copy yields
// ErrObjectNotFound.
func (a *IssueArchive) PurgeIssue(ctx context.Context, id string) error {
	key := DeletedIssueKey(id)
	reader, err := a.storage.Get(ctx, key)
	if err != nil {
		return err
	}
	_ = reader.Close()
	if err := a.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("purge archived issue %s: %w", id, err)
	}
	return nil
}

// ArchivedIssue reads back an archived issue.
func (a *IssueArchive) ArchivedIssue(ctx context.Context, id string) (types.Issue, error) {
	reader, err := a.storage.Get(ctx, DeletedIssueKey(id))
	if err != nil {
		return types.Issue{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return types.Issue{}, err
	}
	var issue types.Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		return types.Issue{}, fmt.Errorf("decode archived issue %s: %w", id, err)
	}
	return issue, nil
}
