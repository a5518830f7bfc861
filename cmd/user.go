/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	userName     string
	userEmail    string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Register, log in and manage the local session",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFlagOrPrompt(cmd)
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *session) error {
			if err := s.auth.Register(cmd.Context(), userName, userEmail, password); err != nil {
				return err
			}
			printWhoami(cmd, s)
			return nil
		})
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFlagOrPrompt(cmd)
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *session) error {
			if err := s.auth.Login(cmd.Context(), userEmail, password); err != nil {
				return err
			}
			printWhoami(cmd, s)
			return nil
		})
	},
}

var userLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			if err := s.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("logged out")
			return nil
		})
	},
}

var userWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			if !s.authStore.Snapshot().IsAuthenticated {
				cmd.PrintErrln("not logged in, run `issuedesk user login`")
				return errors.New("not logged in")
			}
			if _, err := s.auth.Whoami(cmd.Context()); err != nil {
				return err
			}
			printWhoami(cmd, s)
			return nil
		})
	},
}

func passwordFlagOrPrompt(cmd *cobra.Command) (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}
	return readSecret(cmd, "Password: ")
}

func printWhoami(cmd *cobra.Command, s *session) {
	state := s.authStore.Snapshot()
	if state.User == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", state.User.Name, state.User.Email, state.User.ID)
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userRegisterCmd, userLoginCmd, userLogoutCmd, userWhoamiCmd)

	userRegisterCmd.Flags().StringVar(&userName, "name", "", "display name")
	userRegisterCmd.MarkFlagRequired("name")
	for _, c := range []*cobra.Command{userRegisterCmd, userLoginCmd} {
		c.Flags().StringVar(&userEmail, "email", "", "account email")
		c.Flags().StringVar(&userPassword, "password", "", "password, prompted for when empty")
		c.MarkFlagRequired("email")
	}
}
