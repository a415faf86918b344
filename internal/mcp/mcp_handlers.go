package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/core/passband"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	mgr      contract.StoreManager
	registry *passband.Registry
	catalog  *core.Catalog
}

// requestConfig clones the base config for one input path with the fit overrides applied.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	path := request.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cfg := h.baseCfg.Clone()
	cfg.InputPaths = []string{path}
	cfg.SourceMeta = ""
	cfg.Replace = false

	err := contract.RevalidateFitSettings(cfg,
		request.GetString("method", ""),
		request.GetString("kernel_combine", ""),
		request.GetString("mean_function", ""),
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) handleListPassbands(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.registry.Definitions())
}

func (h *toolHandler) handlePassbandSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	summaries, err := core.GetSummaries(core.WithSuppressHeader(ctx), cfg, h.catalog)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}
	return jsonResult(summaries[0])
}

func (h *toolHandler) handleFitLightCurve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg.Replace = request.GetBool("replace", false)

	results := core.GetFitResults(core.WithSuppressHeader(ctx), cfg, h.mgr, h.catalog)
	if results[0].Failed() {
		return mcp.NewToolResultError(fmt.Sprintf("fit failed: %s", results[0].Err)), nil
	}
	return jsonResult(results[0])
}

func (h *toolHandler) handlePredictFlux(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	// Re-validate specifically for the prediction grid
	err = contract.RevalidatePredict(cfg,
		request.GetString("passband", ""),
		request.GetString("start", ""),
		request.GetString("end", ""),
		request.GetInt("points", 0),
		request.GetString("times", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid prediction parameters: %v", err)), nil
	}

	preds, err := core.GetPredictions(core.WithSuppressHeader(ctx), cfg, h.mgr, h.catalog)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prediction failed: %v", err)), nil
	}
	return jsonResult(preds[0])
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
