package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
)

func newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the panchayat backend",
		Long: `Authenticate with email and password and store the session locally.

The password is read from stdin. Subsequent commands reuse the stored
session and refresh it transparently when it expires.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLogin(cmd *cobra.Command, email string) error {
	if err := config.RequireAPI(cfgHolder.Config()); err != nil {
		return err
	}

	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprint(os.Stderr, "Password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	password = strings.TrimRight(password, "\r\n")

	sess, err := a.client.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", sess.UserID, sess.Role)

	return nil
}
