package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameScoreCmd())

	return cmd
}

func newGameCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <room-id>",
		Short: "Create a game in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			if err := client.Post("/api/v1/rooms/"+url.PathEscape(args[0])+"/games", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game-id>",
		Short: "Show a game and its scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			if err := client.Get("/api/v1/games/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameListCmd() *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list <room-id>",
		Short: "List a room's games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathWithQuery("/api/v1/rooms/"+url.PathEscape(args[0])+"/games", pageParams(page, size))

			var result List[Game]
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	addPageFlags(cmd, &page, &size)

	return cmd
}

func newGameScoreCmd() *cobra.Command {
	var playerID string
	var delta int

	cmd := &cobra.Command{
		Use:   "score <game-id>",
		Short: "Add points to a participant's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if playerID == "" {
				playerID = cfg.PlayerID
			}

			req := map[string]any{"player_id": playerID, "delta": delta}
			var result Game
			if err := client.Post("/api/v1/games/"+url.PathEscape(args[0])+"/scores", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "for", "", "Participant to score (defaults to the acting player)")
	cmd.Flags().IntVar(&delta, "delta", 1, "Points to add; negative values subtract")

	return cmd
}
