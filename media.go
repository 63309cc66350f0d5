package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/api"
	"github.com/gramsetu/gramsetu-go/internal/config"
)

func newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Resolve signed URLs for stored media",
	}

	cmd.AddCommand(newMediaURLCmd())
	cmd.AddCommand(newMediaGetCmd())

	return cmd
}

func newMediaURLCmd() *cobra.Command {
	var (
		entityType string
		entityID   string
	)

	cmd := &cobra.Command{
		Use:   "url <file-key>",
		Short: "Resolve a stored file key to a signed URL",
		Long: `Resolve a stored file key to its time-limited signed URL.

Served from the local cache while fresh; otherwise one fetch is made and
cached. A failed fetch reports the resource as unavailable instead of
erroring the command chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMediaURL(cmd, args[0], entityType, entityID)
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "owning entity type for backend authorization")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "owning entity ID for backend authorization")

	return cmd
}

func newMediaGetCmd() *cobra.Command {
	var (
		entityType string
		entityID   string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "get <file-key>",
		Short: "Download a stored file via its signed URL",
		Long: `Resolve a stored file key to its signed URL and download the content.

The signed URL carries its own authorization, so the download itself needs
no session token. Writes to the file named by --output, or to a file named
after the key; "-" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMediaGet(cmd, args[0], entityType, entityID, output)
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "owning entity type for backend authorization")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "owning entity ID for backend authorization")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (\"-\" for stdout)")

	return cmd
}

func runMediaGet(cmd *cobra.Command, key, entityType, entityID, output string) error {
	if err := config.RequireAPI(cfgHolder.Config()); err != nil {
		return err
	}

	a, err := newApp(buildLogger())
	if err != nil {
		return err
	}
	defer a.close()

	a.cache.Seed(cmd.Context(), []string{key})

	url, err := a.cache.Resolve(cmd.Context(), key, entityType, entityID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %d", key, resp.StatusCode)
	}

	var dst io.Writer = os.Stdout

	if output == "" {
		output = filepath.Base(key)
	}

	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()

		dst = f
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	if output != "-" {
		fmt.Printf("Wrote %s (%d bytes)\n", output, n)
	}

	return nil
}

func runMediaURL(cmd *cobra.Command, key, entityType, entityID string) error {
	if err := config.RequireAPI(cfgHolder.Config()); err != nil {
		return err
	}

	a, err := newApp(buildLogger())
	if err != nil {
		return err
	}
	defer a.close()

	a.cache.Seed(cmd.Context(), []string{key})

	url, err := a.cache.Resolve(cmd.Context(), key, entityType, entityID)
	if errors.Is(err, api.ErrResourceUnavailable) {
		fmt.Println("(unavailable)")
		return nil
	}

	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"key": key, "url": url})
	}

	fmt.Println(url)

	return nil
}
