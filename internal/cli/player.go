package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player management commands",
	}

	cmd.AddCommand(newPlayerCreateCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerListCmd())

	return cmd
}

func newPlayerCreateCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a player and remember it as the acting player",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name, "email": email}
			var result Player

			if err := client.Post("/api/v1/players", req, &result); err != nil {
				return err
			}

			if err := cfg.SavePlayer(result.ID); err != nil {
				return fmt.Errorf("failed to save player: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [player-id]",
		Short: "Show a player, defaulting to the acting player",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := cfg.PlayerID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return errNoPlayer
			}

			var result Player
			if err := client.Get("/api/v1/players/"+id, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayerListCmd() *cobra.Command {
	var roomID string
	var activeOnly bool
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pageParams(page, size)
			params["room_id"] = roomID
			if activeOnly {
				params["active"] = "true"
			}

			var result List[Player]
			if err := client.Get(pathWithQuery("/api/v1/players", params), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "Only players in this room")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only connected players")
	addPageFlags(cmd, &page, &size)

	return cmd
}

func addPageFlags(cmd *cobra.Command, page, size *int) {
	cmd.Flags().IntVar(page, "page", 0, "Page number (1-based)")
	cmd.Flags().IntVar(size, "size", 0, "Page size")
}

func pageParams(page, size int) map[string]string {
	params := map[string]string{}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if size > 0 {
		params["size"] = strconv.Itoa(size)
	}
	return params
}
