package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
)

func newPostsCmd() *cobra.Command {
	var prefetch bool

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List the tenant's published posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPosts(cmd, prefetch)
		},
	}

	cmd.Flags().BoolVar(&prefetch, "prefetch-media", false, "warm the signed URL cache for cover images")

	return cmd
}

func runPosts(cmd *cobra.Command, prefetch bool) error {
	if err := config.RequireAPI(cfgHolder.Config()); err != nil {
		return err
	}

	a, err := newApp(buildLogger())
	if err != nil {
		return err
	}
	defer a.close()

	posts, err := a.client.ListPosts(cmd.Context())
	if err != nil {
		return err
	}

	if prefetch {
		keys := make([]string, 0, len(posts))

		for _, p := range posts {
			if p.CoverKey != "" {
				keys = append(keys, p.CoverKey)
			}
		}

		if err := a.cache.Prefetch(cmd.Context(), keys, cfgHolder.Config().Media.PrefetchWorkers); err != nil {
			return err
		}
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(posts)
	}

	for _, p := range posts {
		fmt.Printf("%s  %s  %s\n", p.ID, p.PublishedAt.Format("2006-01-02"), p.Title)
	}

	return nil
}
