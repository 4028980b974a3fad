package handlers

import (
	"net/http"
)

// DocsHandler serves the pre-rendered OpenAPI document
type DocsHandler struct {
	json []byte
	yaml []byte
}

// NewDocsHandler creates a docs handler from rendered JSON and YAML
func NewDocsHandler(jsonDoc, yamlDoc []byte) *DocsHandler {
	return &DocsHandler{json: jsonDoc, yaml: yamlDoc}
}

// JSON handles GET /api/openapi.json
func (h *DocsHandler) JSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.json)
}

// YAML handles GET /api/openapi.yaml
func (h *DocsHandler) YAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.yaml)
}
