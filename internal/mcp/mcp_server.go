// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var (
	methodEnum  = mcp.Enum("mean", "weighted", "effective")
	combineEnum = mcp.Enum("multiplicative", "additive")
	meanEnum    = mcp.Enum("biweight", "zero")
)

// NewMCPServer initializes and configures the blackhat MCP server without starting it.
// Sources stay conditioned for the life of the server, so repeated calls on the same
// light curve reuse the fit.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) (*server.MCPServer, error) {
	registry, err := core.LoadRegistry(baseCfg)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"Blackhat Light Curve Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:  baseCfg,
		mgr:      mgr,
		registry: registry,
		catalog:  core.NewCatalog(registry),
	}

	// --- 1. Tool: list_passbands ---
	s.AddTool(mcp.NewTool("list_passbands",
		mcp.WithDescription("List the known passbands with their central wavelengths in Angstrom, plot color and marker."),
	), h.handleListPassbands)

	// --- 2. Tool: passband_summary ---
	s.AddTool(mcp.NewTool("passband_summary",
		mcp.WithDescription("Summarize a light curve per passband: observations with flux, central wavelength, color and marker."),
		mcp.WithString("path", mcp.Description("Path to the observation file (.csv or .parquet)."), mcp.Required()),
		mcp.WithString("method", mcp.Description("Central wavelength method. Defaults to 'mean'."), methodEnum),
	), h.handlePassbandSummary)

	// --- 3. Tool: fit_light_curve ---
	s.AddTool(mcp.NewTool("fit_light_curve",
		mcp.WithDescription("Fit the Gaussian process hyperparameters of a light curve by maximizing the marginal likelihood."),
		mcp.WithString("path", mcp.Description("Path to the observation file (.csv or .parquet)."), mcp.Required()),
		mcp.WithString("method", mcp.Description("Central wavelength method."), methodEnum),
		mcp.WithString("kernel_combine", mcp.Description("How the time and wavelength kernels combine."), combineEnum),
		mcp.WithString("mean_function", mcp.Description("Mean function subtracted before conditioning."), meanEnum),
		mcp.WithBoolean("replace", mcp.Description("Refit even if the light curve is already conditioned.")),
	), h.handleFitLightCurve)

	// --- 4. Tool: predict_flux ---
	s.AddTool(mcp.NewTool("predict_flux",
		mcp.WithDescription("Predict the posterior flux mean and variance of a light curve at query times and passbands."),
		mcp.WithString("path", mcp.Description("Path to the observation file (.csv or .parquet)."), mcp.Required()),
		mcp.WithString("passband", mcp.Description("Comma-separated passbands to predict (defaults to every observed passband).")),
		mcp.WithString("start", mcp.Description("First query time (defaults to the first observation).")),
		mcp.WithString("end", mcp.Description("Last query time (defaults to the last observation).")),
		mcp.WithNumber("points", mcp.Description("Number of evenly spaced query times between start and end.")),
		mcp.WithString("times", mcp.Description("Comma-separated explicit query times, overriding the grid.")),
		mcp.WithString("method", mcp.Description("Central wavelength method."), methodEnum),
		mcp.WithString("kernel_combine", mcp.Description("How the time and wavelength kernels combine."), combineEnum),
		mcp.WithString("mean_function", mcp.Description("Mean function subtracted before conditioning."), meanEnum),
	), h.handlePredictFlux)

	return s, nil
}

// StartMCPServer starts the blackhat MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s, err := NewMCPServer(baseCfg, mgr)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}
