package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/raceroom/game/room"
	"github.com/wricardo/mcp-training/raceroom/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Race Room Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Race Room Server - MCP Interface

This is a thin, read-only client that proxies requests to the REST API server.
Players create, join and race in rooms over the /ws websocket; these tools let
you observe the lobby.

AVAILABLE TOOLS:
- list_rooms: List live rooms (optionally filtered by state)
- get_room: Get one room with its roster, host and finish times
- server_stats: Room, player and connection counts
- list_configs: List race presets
- get_config: Show one race preset
- protocol_reference: Websocket message reference for building a client`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List live race rooms, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Only rooms in this state",
					"enum":        []string{string(room.StatePending), string(room.StateStarted), string(room.StateFinished)},
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get details of a room including its roster",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_code": map[string]interface{}{
					"type":        "string",
					"description": "Six character room code (case-insensitive)",
				},
			},
			Required: []string{"room_code"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get room, player and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available race presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_config",
		Description: "Show the settings of one race preset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Preset identifier, e.g. classic",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleGetConfig)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_reference",
		Description: "Describe the websocket messages players exchange with the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolReference)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/rooms"
	if state, _ := arguments(request)["state"].(string); state != "" {
		path += "?state=" + url.QueryEscape(state)
	}

	var response struct {
		Count int                `json:"count"`
		Total int                `json:"total"`
		Rooms []service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Rooms (%d of %d):\n\n", response.Count, response.Total)
	if len(response.Rooms) == 0 {
		result += "No rooms.\n"
	}
	for _, r := range response.Rooms {
		result += fmt.Sprintf("- %s [%s] %d/%d players, age %s\n",
			r.Code, r.State, r.PlayerCount, r.Capacity, formatAge(r.AgeSeconds))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, _ := arguments(request)["room_code"].(string)
	code = room.NormalizeCode(code)
	if code == "" {
		return mcp.NewToolResultError("room_code is required"), nil
	}

	var info service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(code), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health struct {
		Status      string `json:"status"`
		Rooms       int    `json:"rooms"`
		Players     int    `json:"players"`
		Connections int    `json:"connections"`
		Preset      string `json:"preset"`
	}
	if err := c.apiCall(ctx, "GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Status: %s\nPreset: %s\nRooms: %d\nPlayers: %d\nConnections: %d\n",
		health.Status, health.Preset, health.Rooms, health.Players, health.Connections)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Configs []service.ConfigInfo `json:"configs"`
	}
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, config := range response.Configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Capacity: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Capacity)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := arguments(request)["name"].(string)
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	var preset room.Preset
	if err := c.apiCall(ctx, "GET", "/api/configs/"+url.PathEscape(name), nil, &preset); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Preset: %s\n%s\nCapacity: %d\nArena width: %.0f\nSpawn Y: %.0f\nColours: %s\n",
		preset.Name, preset.Description, preset.Capacity, preset.ArenaWidth, preset.SpawnY,
		strings.Join(preset.Palette, ", "))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleProtocolReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(protocolReference), nil
}

const protocolReference = `Websocket protocol (GET /ws)

Every frame is JSON: {"event": "<name>", "data": {...}}
Room codes are six characters from ABCDEFGHJKLMNPQRSTUVWXYZ23456789 and are
case-insensitive.

Client -> server:
- create-room {nickname}
- join-room {roomCode, nickname}
- start-game {roomCode, powerUps, obstacles}     host only
- update-position {roomCode, x, y, velocityX, velocityY, ...}
- collect-powerup {roomCode, powerUpId}
- hit-obstacle {roomCode, obstacleId}
- drop-condom {roomCode, condom}
- player-finished {roomCode}

Server -> client:
- room-created {roomCode, player, isHost}
- room-joined {roomCode, player, players, isHost}
- player-joined {player, players}                to the other members
- room-error {message}                           to the requester only
- game-started {powerUps, obstacles, players}
- player-update {playerId, roomCode, ...}        to the other members
- powerup-collected {playerId, powerUpId}
- obstacle-hit {playerId, obstacleId}
- condom-dropped {playerId, condom}              to the other members
- player-crossed-finish {playerId, nickname, finishTime, position}
- game-finished {rankings}
- player-left {playerId, nickname, players}
- new-host {hostId}
`

// Formatting helpers

func formatAge(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatRoomInfo(info *service.RoomInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Room %s [%s]\n", info.Code, info.State)
	fmt.Fprintf(&b, "Players: %d/%d\n", info.PlayerCount, info.Capacity)
	fmt.Fprintf(&b, "Age: %s\n", formatAge(info.AgeSeconds))
	if info.State != room.StatePending {
		fmt.Fprintf(&b, "Power-ups: %d, Obstacles: %d, Dropped: %d\n",
			info.PowerUps, info.Obstacles, info.DroppedItems)
	}

	b.WriteString("\nRoster:\n")
	for i, p := range info.Players {
		marker := ""
		if p.ID == info.Host {
			marker = " (host)"
		}
		fmt.Fprintf(&b, "%d. %s%s %s", i+1, p.Nickname, marker, p.Color)
		if p.Finished && p.FinishTime != nil {
			fmt.Fprintf(&b, " finished in %.2fs", float64(*p.FinishTime)/1000)
		}
		b.WriteString("\n")
	}

	return b.String()
}
