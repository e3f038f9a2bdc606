package server

import "net/http"

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	HighFreq    bool   `json:"highFreq"`
}

type toolsResponse struct {
	Categories []categoryInfo `json:"categories"`
	Tools      []toolInfo     `json:"tools"`
}

type categoryInfo struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	ToolCount   int      `json:"toolCount"`
	ToolNames   []string `json:"toolNames"`
}

// getTools handles GET /tools: the category directory plus every
// registered tool definition, so the client can build its tool picker
// without loading a category first.
func (s *Server) getTools(w http.ResponseWriter, r *http.Request) {
	cats := s.registry.Categories()
	outCats := make([]categoryInfo, 0, len(cats))
	for _, c := range cats {
		outCats = append(outCats, categoryInfo{
			Category:    string(c.Category),
			Description: c.Description,
			ToolCount:   c.ToolCount,
			ToolNames:   c.ToolNames,
		})
	}

	defs := s.registry.List()
	outTools := make([]toolInfo, 0, len(defs))
	for _, d := range defs {
		outTools = append(outTools, toolInfo{
			Name:        d.Name,
			Description: d.Description,
			Category:    string(d.Category),
			HighFreq:    d.HighFreq,
		})
	}

	writeJSON(w, http.StatusOK, toolsResponse{Categories: outCats, Tools: outTools})
}

type modelInfo struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	IsDefault bool  `json:"isDefault"`
}

// getModels handles GET /models: the fixed set of OpenRouter-routed
// models the client may pick between, with the configured default
// flagged so the UI can preselect it.
func (s *Server) getModels(w http.ResponseWriter, r *http.Request) {
	catalog := []modelInfo{
		{ID: "anthropic/claude-sonnet-4", Label: "Claude Sonnet 4"},
		{ID: "anthropic/claude-opus-4", Label: "Claude Opus 4"},
		{ID: "openai/gpt-4o", Label: "GPT-4o"},
		{ID: "openai/gpt-4o-mini", Label: "GPT-4o mini"},
		{ID: "google/gemini-2.5-pro", Label: "Gemini 2.5 Pro"},
	}

	found := false
	for i := range catalog {
		if catalog[i].ID == s.cfg.OpenRouterModel {
			catalog[i].IsDefault = true
			found = true
		}
	}
	if !found {
		catalog = append([]modelInfo{{ID: s.cfg.OpenRouterModel, Label: s.cfg.OpenRouterModel, IsDefault: true}}, catalog...)
	}

	writeJSON(w, http.StatusOK, map[string]any{"models": catalog})
}

type commandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// builtinCommands mirrors the conversation-management slash commands a
// coding-agent client conventionally offers; command classification
// and execution happen at the routing layer, outside this surface.
var builtinCommands = []commandInfo{
	{Name: "help", Description: "Show available commands"},
	{Name: "clear", Description: "Clear the current conversation"},
	{Name: "compact", Description: "Compact the conversation to save context"},
	{Name: "reset", Description: "Reset the session to its initial state"},
	{Name: "undo", Description: "Undo the last message"},
}

// getCommands handles GET /commands.
func (s *Server) getCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": builtinCommands})
}
