package server

import (
	"net/http"
	"strconv"

	"github.com/stacksmith/stackcard/service/config"
)

const (
	serviceName    = "stackcard"
	serviceVersion = "0.1.0"
)

// handleServiceBanner serves the static service description.
// GET /
func handleServiceBanner(cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":        serviceName,
			"version":     serviceVersion,
			"description": "Pay-per-call wallet card generator for Stacks addresses",
			"network":     cfg.Network,
			"endpoints": map[string]string{
				"GET /data/{address}":   "aggregated wallet record",
				"GET /prompt/{address}": "card prompt preview (free)",
				"GET /card/{address}":   "rendered card image (paid; " + paymentProofHeader + " header)",
				"GET /openapi.json":     "machine-readable API description",
				"GET /health":           "health check",
			},
			"pricing": map[string]string{
				"card": strconv.FormatInt(cfg.Payment.PriceMicroSTX, 10) + " micro-STX via " +
					cfg.Payment.ContractID + "." + cfg.Payment.FunctionName,
			},
		}, http.StatusOK)
	})
}

// handleOpenAPI serves the machine-readable interface description.
// GET /openapi.json
func handleOpenAPI(cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, openAPIDocument(cfg), http.StatusOK)
	})
}

// openAPIDocument builds the OpenAPI 3.0 description of the service.
func openAPIDocument(cfg *config.Config) map[string]any {
	errorEnvelope := map[string]any{
		"type":     "object",
		"required": []string{"error"},
		"properties": map[string]any{
			"error": map[string]any{"type": "string"},
		},
	}

	addressParam := []map[string]any{{
		"name":     "address",
		"in":       "path",
		"required": true,
		"schema":   map[string]any{"type": "string", "pattern": "^S[PTMN][A-Z0-9]{38,40}$"},
	}}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   serviceName,
			"version": serviceVersion,
		},
		"paths": map[string]any{
			"/data/{address}": map[string]any{
				"get": map[string]any{
					"summary":    "Aggregated wallet record",
					"parameters": addressParam,
					"responses": map[string]any{
						"200": map[string]any{"description": "wallet record"},
						"400": map[string]any{"description": "malformed address"},
					},
				},
			},
			"/prompt/{address}": map[string]any{
				"get": map[string]any{
					"summary":    "Card prompt preview",
					"parameters": addressParam,
					"responses": map[string]any{
						"200": map[string]any{"description": "wallet record, prompt, and note"},
						"400": map[string]any{"description": "malformed address"},
					},
				},
			},
			"/card/{address}": map[string]any{
				"get": map[string]any{
					"summary":    "Rendered card image (paid)",
					"parameters": append(addressParam, map[string]any{
						"name":     paymentProofHeader,
						"in":       "header",
						"required": false,
						"schema":   map[string]any{"type": "string"},
					}),
					"responses": map[string]any{
						"200": map[string]any{"description": "card image (image/png)"},
						"400": map[string]any{"description": "malformed address"},
						"402": map[string]any{"description": "payment challenge"},
						"403": map[string]any{"description": "payment claim rejected"},
						"500": map[string]any{"description": "generation failed after payment"},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": errorEnvelope,
			},
		},
		"x-payment": map[string]any{
			"contract": cfg.Payment.ContractID,
			"function": cfg.Payment.FunctionName,
			"price":    strconv.FormatInt(cfg.Payment.PriceMicroSTX, 10),
			"token":    "STX",
			"network":  cfg.Network,
		},
	}
}
