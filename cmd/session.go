/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/issuedesk/apiserver/config"
	"github.com/issuedesk/apiserver/internal/client"
	"github.com/issuedesk/apiserver/internal/client/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// session bundles the client stores and actions used by the user and issues
// commands.
type session struct {
	auth   *client.AuthActions
	issues *client.IssueActions

	authStore  *store.AuthStore
	issueStore *store.IssueStore
	persister  *store.SQLitePersister
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg := config.LoadConfig()

	persister, err := store.OpenSQLitePersister(ctx, cfg.Client.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	authStore := store.NewAuthStore(persister)
	if err := authStore.Load(ctx); err != nil {
		_ = persister.Close()
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	notifier := client.NotifierFunc(func(n client.Notification) {
		fmt.Fprintf(stderr, "%s: %s\n", n.Title, n.Description)
	})

	api := client.NewAPI(cfg.Client.APIURL, cfg.Client.Timeout)
	issueStore := store.NewIssueStore()
	return &session{
		auth:       client.NewAuthActions(api, authStore, notifier),
		issues:     client.NewIssueActions(api, authStore, issueStore, notifier),
		authStore:  authStore,
		issueStore: issueStore,
		persister:  persister,
	}, nil
}

func (s *session) Close() error {
	return s.persister.Close()
}

// withSession runs fn with an open session and silences the error print,
// since actions already reported the failure.
func withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		cmd.SilenceErrors = true
		return err
	}
	return nil
}

// readSecret prompts for a value without echo on a terminal and reads a plain
// line otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(secret), err
	}
	return readLine(cmd.InOrStdin())
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
