package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Query the backend for the signed-in user's identity.

Exercises the full authenticated call path: an expired access token is
refreshed transparently before the identity is returned.`,
		RunE: runWhoami,
	}
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if err := config.RequireAPI(cfgHolder.Config()); err != nil {
		return err
	}

	a, err := newApp(buildLogger())
	if err != nil {
		return err
	}
	defer a.close()

	userID, role, err := a.client.Whoami(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"user_id": userID,
			"role":    role,
		})
	}

	fmt.Printf("%s (%s)\n", userID, role)

	return nil
}
