package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// ListRequest represents the arguments for list and untracked.
type ListRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

// NameRequest represents the arguments for show.
type NameRequest struct {
	Name string `json:"name"`
}

// InstallRequest represents the arguments for install.
type InstallRequest struct {
	File   string `json:"file"`
	Source string `json:"source,omitempty"`
	Name   string `json:"name,omitempty"`
}

// UninstallRequest represents the arguments for uninstall.
type UninstallRequest struct {
	Name     string `json:"name"`
	Cascade  bool   `json:"cascade,omitempty"`
	FailFast *bool  `json:"fail_fast,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// ToggleRequest represents the arguments for toggle.
type ToggleRequest struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

// TrackRequest represents the arguments for track.
type TrackRequest struct {
	Names []string `json:"names,omitempty"`
}

// Handler implementations

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Detect(ctx, h.env, ops.DetectInput{Refresh: input.Refresh})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUntracked handles the untracked tool call.
func (h *Handlers) HandleUntracked(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Untracked(ctx, h.env, ops.DetectInput{Refresh: input.Refresh})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.env, input.Name)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInstall handles the install tool call.
func (h *Handlers) HandleInstall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InstallRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Install(ctx, h.env, ops.InstallInput{
		File:   input.File,
		Source: input.Source,
		Name:   input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUninstall handles the uninstall tool call.
func (h *Handlers) HandleUninstall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UninstallRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Uninstall(ctx, h.env, ops.UninstallInput{
		Name:     input.Name,
		Cascade:  input.Cascade,
		FailFast: input.FailFast,
		DryRun:   input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleToggle handles the toggle tool call.
func (h *Handlers) HandleToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Enabled == nil {
		return errorResult(errors.NewInvalidRequest("enabled is required")), nil
	}

	result, err := ops.SetEnabled(ctx, h.env, ops.ToggleInput{Name: input.Name, Enabled: *input.Enabled})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTrack handles the track tool call.
func (h *Handlers) HandleTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TrackRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Track(ctx, h.env, ops.TrackInput{Names: input.Names})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReindex handles the reindex tool call.
func (h *Handlers) HandleReindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Reindex(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var modErr *errors.ModError
	if stderrors.As(err, &modErr) {
		errorObj := map[string]any{
			"code":    modErr.Code,
			"message": modErr.Message,
			"status":  modErr.Status,
		}
		if modErr.Code != errors.ErrInternal && modErr.Details != nil {
			errorObj["details"] = modErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
