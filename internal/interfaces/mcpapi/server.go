package mcpapi

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server with every tool registered.
func NewServer(api *API, name, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	addTool(server, &mcp.Tool{
		Name:        "find_players",
		Description: "Search players by name, nickname or initials",
	}, api, api.findPlayers)

	addTool(server, &mcp.Tool{
		Name:        "get_player",
		Description: "Look up one player by FPL id, including recent round history and remaining fixtures",
	}, api, api.getPlayer)

	addTool(server, &mcp.Tool{
		Name:        "analyze_fixtures",
		Description: "Fixture difficulty outlook for a player, team or position",
	}, api, api.analyzeFixtures)

	addTool(server, &mcp.Tool{
		Name:        "get_blank_gameweeks",
		Description: "Upcoming gameweeks where teams have no fixture",
	}, api, api.blankGameweeks)

	addTool(server, &mcp.Tool{
		Name:        "get_double_gameweeks",
		Description: "Upcoming gameweeks where teams play twice",
	}, api, api.doubleGameweeks)

	addTool(server, &mcp.Tool{
		Name:        "get_my_team",
		Description: "Your current squad with picks resolved to player names",
	}, api, api.getMyTeam)

	addTool(server, &mcp.Tool{
		Name:        "get_team_for_gameweek",
		Description: "An entry's picks for one gameweek",
	}, api, api.getTeamForGameweek)

	addTool(server, &mcp.Tool{
		Name:        "get_entry",
		Description: "Public profile of one FPL entry",
	}, api, api.getEntry)

	addTool(server, &mcp.Tool{
		Name:        "analyze_league_fixtures",
		Description: "Compare fixture outlooks across a classic league",
	}, api, api.analyzeLeagueFixtures)

	addTool(server, &mcp.Tool{
		Name:        "set_credentials",
		Description: "Store FPL login credentials in the encrypted vault",
	}, api, api.setCredentials)

	addTool(server, &mcp.Tool{
		Name:        "clear_credentials",
		Description: "Remove stored FPL login credentials",
	}, api, api.clearCredentials)

	return server
}

// Run serves the tools over stdio until the context ends.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func addTool[T any](server *mcp.Server, tool *mcp.Tool, api *API, handler func(context.Context, T) (any, error)) {
	mcp.AddTool(server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args T) (*mcp.CallToolResult, any, error) {
		out, err := handler(ctx, args)
		if err != nil {
			api.logger.WarnContext(ctx, "tool call failed", "tool", tool.Name, "error", err)
			return toolError(err), nil, nil
		}
		return toolJSON(out)
	})
}

func toolJSON(out any) (*mcp.CallToolResult, any, error) {
	raw, err := sonic.Marshal(out)
	if err != nil {
		return toolError(fmt.Errorf("encode result: %w", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	raw, marshalErr := sonic.Marshal(errorPayload(err))
	if marshalErr != nil {
		raw = []byte(fmt.Sprintf(`{"error": %q, "category": "internal"}`, err.Error()))
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}
