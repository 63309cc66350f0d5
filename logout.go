package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.RequireAPI(cfgHolder.Config()); err != nil {
				return err
			}

			a, err := newApp(buildLogger())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("Logged out")

			return nil
		},
	}
}
