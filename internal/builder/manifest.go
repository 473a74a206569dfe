package builder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/mcpforge/internal/extractor"
)

// DefaultServerPort is the port the generated server listens on.
const DefaultServerPort = 7860

// Manifest is the small run-configuration record written next to the extraction
// output as config.json. The generated client connects to ServerPort; the client UI
// itself runs on ClientPort.
type Manifest struct {
	RunID          string    `json:"run_id" yaml:"run_id"`
	ServerPort     int       `json:"server_port" yaml:"server_port"`
	ClientPort     int       `json:"client_port" yaml:"client_port"`
	MCPSSEEndpoint string    `json:"mcp_sse_endpoint" yaml:"mcp_sse_endpoint"`
	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
	Files          []string  `json:"files" yaml:"files"`
	EntryPoints    int       `json:"entry_points" yaml:"entry_points"`
	Helpers        int       `json:"helpers" yaml:"helpers"`
	Constants      int       `json:"constants" yaml:"constants"`
}

// NewManifest builds the manifest for a finished run.
func NewManifest(port int, res *extractor.Result, now time.Time) *Manifest {
	if port <= 0 {
		port = DefaultServerPort
	}
	m := &Manifest{
		RunID:          uuid.New().String(),
		ServerPort:     port,
		ClientPort:     port + 1,
		MCPSSEEndpoint: SSEEndpoint(port),
		GeneratedAt:    now.UTC(),
		Files:          []string{},
	}
	if res != nil {
		m.Files = append(m.Files, res.Files...)
		m.EntryPoints = len(res.EntryPoints)
		m.Helpers = len(res.Helpers)
		m.Constants = len(res.Constants)
	}
	return m
}

// SSEEndpoint returns the MCP server-sent-events URL of a server on port.
func SSEEndpoint(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/gradio_api/mcp/sse", port)
}
