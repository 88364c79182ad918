package main

// Compiled modules. Each registers itself with the core registry.
import (
	_ "github.com/flemzord/scalegate/internal/gateway"
	_ "github.com/flemzord/scalegate/modules/audit/sqlite"
	mcpbackend "github.com/flemzord/scalegate/modules/backend/mcp"
	_ "github.com/flemzord/scalegate/modules/reasoning/openai"
)

func init() {
	mcpbackend.ClientVersion = version
}
