package api

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/kit"
)

func noArgs(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{}, nil
}

func categories() []string {
	out := make([]string, len(activitylog.Categories))
	for i, c := range activitylog.Categories {
		out[i] = string(c)
	}
	return out
}

// RegisterMCP registers the ftlext tools on srv.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	category := map[string]any{"type": "string", "enum": categories(), "description": "Log category"}

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_get_settings",
		Description: "List every setting with its schema and current value.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}, s.endpoint("get_settings", s.getSettings), noArgs)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_set_setting",
		Description: "Change one setting. The value must match the setting type and range.",
		InputSchema: kit.InputSchema(map[string]any{
			"key":   map[string]any{"type": "string", "description": "Setting key"},
			"value": map[string]any{"description": "New value: boolean, number or array of strings"},
		}, []string{"key", "value"}),
	}, s.endpoint("set_setting", s.setSetting), kit.DecodeArgs[setSettingReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_read_log",
		Description: "Read an activity log (admin, staff, mentions, tts, sfx) as entries or Markdown.",
		InputSchema: kit.InputSchema(map[string]any{
			"category": category,
			"format":   map[string]any{"type": "string", "enum": []string{"json", "markdown"}},
		}, []string{"category"}),
	}, s.endpoint("read_log", s.readLog), kit.DecodeArgs[logReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_clear_log",
		Description: "Delete every entry of an activity log.",
		InputSchema: kit.InputSchema(map[string]any{"category": category}, []string{"category"}),
	}, s.endpoint("clear_log", s.clearLog), kit.DecodeArgs[logReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_stats",
		Description: "Runtime counters of the page session: class cache, watchers, bootstrap, mirror.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}, s.endpoint("stats", s.stats), noArgs)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ftlext_class_names",
		Description: "Resolved hashed class names by semantic prefix.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}, s.endpoint("class_names", s.classNames), noArgs)
}
