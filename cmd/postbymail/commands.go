package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandon/postbymail/internal/content"
	"github.com/brandon/postbymail/internal/mcp"
	"github.com/brandon/postbymail/internal/tools"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		category int
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over published articles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			database, store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			opts := content.SearchOptions{Limit: limit}
			if len(args) == 1 {
				opts.Query = args[0]
			}
			if cmd.Flags().Changed("category") {
				opts.CatID = &category
			}

			results, err := store.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]interface{}{
				"count":    len(results),
				"articles": results,
			})
		},
	}

	cmd.Flags().IntVar(&category, "category", 0, "only articles in this category")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of results (1-1000)")
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List articles missing their index or workflow rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			database, store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			orphans, err := store.Orphans(cmd.Context())
			if err != nil {
				return err
			}

			if len(orphans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "[INFO] No orphan articles.")
				return nil
			}

			for _, o := range orphans {
				var missing []string
				if o.MissingUCMContent {
					missing = append(missing, "ucm_content")
				}
				if o.MissingUCMBase {
					missing = append(missing, "ucm_base")
				}
				if o.MissingWorkflowLink {
					missing = append(missing, "workflow_associations")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[ORPHAN] %d %s (missing %s)\n", o.ID, o.Title, strings.Join(missing, ", "))
			}
			return fmt.Errorf("found %d orphan articles", len(orphans))
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only article tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			database, store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			server := mcp.NewServer(tools.NewRegistry(store, logger), version, logger)
			return server.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// newCredentialCmd stores the mailbox password under the key named by
// mailbox.keyring_key. The secret is read from stdin.
func newCredentialCmd(setSecret func(key, value string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage mailbox secrets in the system keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			secret := strings.TrimRight(string(data), "\r\n")
			if secret == "" {
				return fmt.Errorf("empty secret for %s", args[0])
			}
			if err := setSecret(args[0], secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[INFO] Stored secret %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
