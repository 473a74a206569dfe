package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/mcpforge/internal/builder"
	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// EntityExtractor runs an extraction over paths or inline sources.
// *builder.Runner satisfies it.
type EntityExtractor interface {
	Run(ctx context.Context, paths []string) (*extractor.Result, error)
	Extract(ctx context.Context, sources []builder.Source) (*extractor.Result, error)
}

// ExtractEntitiesResponse is the JSON body returned by extract_entities.
type ExtractEntitiesResponse struct {
	Files       []string                    `json:"files"`
	EntryPoints []extractor.SourceEntity    `json:"entry_points"`
	Helpers     []extractor.SourceEntity    `json:"helpers,omitempty"`
	Constants   []extractor.ConstantBinding `json:"constants,omitempty"`
	Imports     []extractor.ImportStatement `json:"imports,omitempty"`
	Warnings    []extractor.Warning         `json:"warnings,omitempty"`
	Total       int                         `json:"total"`
}

// AddExtractEntitiesTool registers the extract_entities tool with an MCP server.
func AddExtractEntitiesTool(s *server.MCPServer, ex EntityExtractor) {
	tool := mcp.NewTool(
		"extract_entities",
		mcp.WithDescription("Extract entry-point functions, helper functions, constants and imports from Python source files. Entry points are functions or methods carrying the configured marker decorator. Returns exact source text, signatures and docstrings."),
		mcp.WithArray("paths",
			mcp.Description("Python files or directories to extract from. Directories are searched with the configured include and ignore patterns.")),
		mcp.WithArray("sources",
			mcp.Description("Inline sources as objects {\"path\": \"name.py\", \"content\": \"...\"}. Used instead of paths.")),
		mcp.WithBoolean("include_helpers",
			mcp.Description("Include helper functions, constants and imports in the response (default: true)")),
		mcp.WithBoolean("include_source",
			mcp.Description("Include the exact source text of each entity (default: true)")),
	)

	s.AddTool(tool, createExtractEntitiesHandler(ex))
}

// createExtractEntitiesHandler creates the handler function for extract_entities tool.
func createExtractEntitiesHandler(ex EntityExtractor) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		paths := parseArrayArg(argsMap, "paths")
		sources, err := parseSourcesArg(argsMap, "sources")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(paths) == 0 && len(sources) == 0 {
			return mcp.NewToolResultError("paths or sources parameter is required"), nil
		}
		includeHelpers := parseBoolArg(argsMap, "include_helpers", true)
		includeSource := parseBoolArg(argsMap, "include_source", true)

		var res *extractor.Result
		if len(sources) > 0 {
			inline := make([]builder.Source, len(sources))
			for i, src := range sources {
				inline[i] = builder.Source{Path: src.Path, Content: []byte(src.Content)}
			}
			res, err = ex.Extract(ctx, inline)
		} else {
			res, err = ex.Run(ctx, paths)
		}
		if err != nil {
			if isUserError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("extraction failed: %w", err)
		}

		return marshalToolResponse(buildResponse(res, includeHelpers, includeSource))
	}
}

// isUserError reports whether err stems from the request rather than the server.
func isUserError(err error) bool {
	return errors.Is(err, extractor.ErrNoEntryPoints) ||
		errors.Is(err, syntax.ErrUnparsable) ||
		errors.Is(err, builder.ErrInputNotFound) ||
		errors.Is(err, builder.ErrNotPython) ||
		errors.Is(err, builder.ErrNoInputs)
}

func buildResponse(res *extractor.Result, includeHelpers, includeSource bool) *ExtractEntitiesResponse {
	response := &ExtractEntitiesResponse{
		Files:       res.Files,
		EntryPoints: stripSource(res.EntryPoints, includeSource),
		Warnings:    res.Warnings,
		Total:       len(res.EntryPoints),
	}
	if includeHelpers {
		response.Helpers = stripSource(res.Helpers, includeSource)
		response.Constants = res.Constants
		response.Imports = res.Imports
		response.Total += len(res.Helpers)
	}
	return response
}

func stripSource(entities []extractor.SourceEntity, includeSource bool) []extractor.SourceEntity {
	if includeSource {
		return entities
	}
	out := make([]extractor.SourceEntity, len(entities))
	for i, e := range entities {
		e.SourceText = ""
		out[i] = e
	}
	return out
}
