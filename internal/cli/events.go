package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool
	var code, password string
	var count int

	cmd := &cobra.Command{
		Use:   "events [room-id]",
		Short: "Connect as the acting player and stream room events",
		Long: `Open the event socket as the acting player and stream events in real-time.

With a room id the player reconnects to a room they already belong to. With
--code the player joins a room by its join code first.

Events include:
  - player_joined_room / player_left_room: Membership changed
  - player_active / player_inactive: A player connected or dropped
  - host_reassigned: The room has a new host
  - host_kicked_player: A player was removed from the room
  - current_game_changed: The room moved on to a new game
  - error: A request from this connection failed

Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PlayerID == "" {
				return fmt.Errorf("--player is required (or run 'player create' first)")
			}
			opts := streamOptions{
				PlayerID: cfg.PlayerID,
				Code:     code,
				Password: password,
				Count:    count,
				JSON:     jsonOutput,
			}
			if len(args) == 1 {
				opts.RoomID = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return streamEvents(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().StringVar(&code, "code", "", "Join the room with this code")
	cmd.Flags().StringVar(&password, "password", "", "Room password for --code")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

type streamOptions struct {
	PlayerID string
	RoomID   string
	Code     string
	Password string
	Count    int
	JSON     bool
}

// StreamedEvent is one event printed by the events command
type StreamedEvent struct {
	Time    time.Time       `json:"time"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func streamEvents(ctx context.Context, opts streamOptions, w io.Writer) error {
	wsURL, err := client.WebSocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop when interrupted
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if err := sendFrame(conn, "connect", map[string]string{
		"playerID": opts.PlayerID,
		"roomID":   opts.RoomID,
	}); err != nil {
		return err
	}
	if opts.Code != "" {
		if err := sendFrame(conn, "join_room_with_code", map[string]string{
			"playerID": opts.PlayerID,
			"roomCode": opts.Code,
			"password": opts.Password,
		}); err != nil {
			return err
		}
	}

	if !opts.JSON {
		_, _ = fmt.Fprintf(w, "Connected as %s\n", opts.PlayerID)
	}

	for seen := 0; opts.Count == 0 || seen < opts.Count; seen++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if !opts.JSON {
					_, _ = fmt.Fprintln(w, "Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(w, data, opts.JSON)
	}

	return nil
}

func sendFrame(conn *websocket.Conn, eventType string, payload any) error {
	frame := map[string]any{"eventType": eventType, "payload": payload}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}

func printEvent(w io.Writer, data []byte, jsonOutput bool) {
	now := time.Now()
	event := gjson.GetBytes(data, "eventType").String()
	payload := gjson.GetBytes(data, "payload")

	if jsonOutput {
		evt := StreamedEvent{
			Time:    now,
			Event:   event,
			Payload: json.RawMessage(payload.Raw),
		}
		if !payload.Exists() {
			evt.Payload = json.RawMessage("null")
		}
		jsonData, _ := json.Marshal(evt)
		_, _ = fmt.Fprintln(w, string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	display := strings.ReplaceAll(payload.Raw, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, display)
}
