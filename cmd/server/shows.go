package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Belphemur/ShowTracker/internal/client"
	"github.com/Belphemur/ShowTracker/internal/config"
	"github.com/Belphemur/ShowTracker/internal/models"
)

var (
	serverURL   string
	jsonOutput  bool
	minEpisodes int
	updateName  string
	updateEps   int
)

var showsCmd = &cobra.Command{
	Use:   "shows",
	Short: "Manage shows on a running server",
}

var showsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shows, optionally only those with a minimum of episodes seen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		var filter *int
		if cmd.Flags().Changed("min-episodes") {
			filter = &minEpisodes
		}
		list, err := c.ListShows(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printShows(cmd.OutOrStdout(), list)
	},
}

var showsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single show",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseShowID(args[0])
		if err != nil {
			return err
		}
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		show, err := c.GetShow(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printShows(cmd.OutOrStdout(), []models.Show{show})
	},
}

var showsAddCmd = &cobra.Command{
	Use:   "add <name> <episodes-seen>",
	Short: "Add a new show",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("episodes seen must be an integer, got %q", args[1])
		}
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		show, err := c.CreateShow(cmd.Context(), args[0], episodes)
		if err != nil {
			return err
		}
		return printShows(cmd.OutOrStdout(), []models.Show{show})
	},
}

var showsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the name or episodes seen of a show",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseShowID(args[0])
		if err != nil {
			return err
		}

		var update client.ShowUpdate
		if cmd.Flags().Changed("name") {
			update.Name = &updateName
		}
		if cmd.Flags().Changed("episodes") {
			update.EpisodesSeen = &updateEps
		}
		if update.Name == nil && update.EpisodesSeen == nil {
			return fmt.Errorf("nothing to update: set --name and/or --episodes")
		}

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		show, err := c.UpdateShow(cmd.Context(), id, update)
		if err != nil {
			return err
		}
		return printShows(cmd.OutOrStdout(), []models.Show{show})
	},
}

var showsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a show",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseShowID(args[0])
		if err != nil {
			return err
		}
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := c.DeleteShow(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted show %d\n", id)
		return nil
	},
}

func init() {
	showsCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Base URL of the server (default: client.base_url from config)")
	showsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	showsListCmd.Flags().IntVar(&minEpisodes, "min-episodes", 0, "Only list shows with at least this many episodes seen")
	showsUpdateCmd.Flags().StringVar(&updateName, "name", "", "New name")
	showsUpdateCmd.Flags().IntVar(&updateEps, "episodes", 0, "New number of episodes seen")

	showsCmd.AddCommand(showsListCmd, showsGetCmd, showsAddCmd, showsUpdateCmd, showsDeleteCmd)
	rootCmd.AddCommand(showsCmd)
}

func newAPIClient() (client.Client, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.Client.BaseURL = serverURL
	}
	return client.NewClient(cfg), nil
}

func parseShowID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("show id must be an integer, got %q", raw)
	}
	return id, nil
}

// printShows writes shows as an aligned table, or as JSON with --json.
func printShows(w io.Writer, list []models.Show) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEPISODES SEEN")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", s.ID, s.Name, s.EpisodesSeen)
	}
	return tw.Flush()
}
