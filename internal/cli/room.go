package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomSetGameCmd())
	cmd.AddCommand(newRoomUnbanCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room owned by the acting player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PlayerID == "" {
				return fmt.Errorf("--player is required (or run 'player create' first)")
			}

			req := map[string]string{
				"owner_player_id": cfg.PlayerID,
				"password":        password,
			}
			var result Room

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Room password")

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	var byCode bool

	cmd := &cobra.Command{
		Use:   "get <room-id>",
		Short: "Show a room by id, or by code with --code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rooms/" + url.PathEscape(args[0])
			if byCode {
				path = "/api/v1/rooms/code/" + url.PathEscape(args[0])
			}

			var result Room
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byCode, "code", false, "Look the room up by its join code")

	return cmd
}

func newRoomListCmd() *cobra.Command {
	var owner string
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pageParams(page, size)
			params["owner_id"] = owner

			var result List[Room]
			if err := client.Get(pathWithQuery("/api/v1/rooms", params), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only rooms owned by this player")
	addPageFlags(cmd, &page, &size)

	return cmd
}

func newRoomSetGameCmd() *cobra.Command {
	var gameID, champion string
	var tie bool

	cmd := &cobra.Command{
		Use:   "set-game <room-id>",
		Short: "Make a game the room's current game",
		Long: `Make a game the room's current game, retiring the previous one.

Use --champion to record the winner of the previous game, or --tie to record
a tie. Without either, the champion is left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if champion != "" && tie {
				return fmt.Errorf("--champion and --tie are mutually exclusive")
			}

			req := map[string]any{"game_id": gameID}
			switch {
			case tie:
				req["champion"] = nil
			case champion != "":
				req["champion"] = champion
			}

			var result Room
			if err := client.Put("/api/v1/rooms/"+url.PathEscape(args[0])+"/current-game", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameID, "game", "", "Game id (required)")
	cmd.Flags().StringVar(&champion, "champion", "", "Winner of the previous game")
	cmd.Flags().BoolVar(&tie, "tie", false, "The previous game was a tie")
	_ = cmd.MarkFlagRequired("game")

	return cmd
}

func newRoomUnbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban <room-id> <player-id>",
		Short: "Lift a player's ban from a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result BanResolution
			path := "/api/v1/rooms/" + url.PathEscape(args[0]) + "/bans/" + url.PathEscape(args[1])
			if err := client.Delete(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
