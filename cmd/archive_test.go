package cmd

import (
	"context"
	"testing"

	"github.com/issuedesk/apiserver/internal/storage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestWithArchive_RequiresStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "none")

	c := &cobra.Command{Use: "purge"}
	c.SetContext(context.Background())
	called := false
	err := withArchive(c, func(*storage.IssueArchive) error {
		called = true
		return nil
	})
	assert.EqualError(t, err, "STORAGE_BACKEND is not configured")
	assert.False(t, called)
}

func TestArchiveCommandsRegistered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"archive", "purge"})
	assert.NoError(t, err)
	assert.Same(t, archivePurgeCmd, found)

	found, _, err = rootCmd.Find([]string{"archive", "show"})
	assert.NoError(t, err)
	assert.Same(t, archiveShowCmd, found)
}
