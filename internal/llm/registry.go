package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// InstalledModel is a model reported by the Ollama registry.
type InstalledModel struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type tagsResponse struct {
	Models []InstalledModel `json:"models"`
}

// ListModels queries /api/tags and returns the installed models.
func ListModels(baseURL string) ([]InstalledModel, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/tags returned %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return result.Models, nil
}

// Reachable reports whether the Ollama runtime answers at baseURL.
func Reachable(baseURL string) bool {
	_, err := ListModels(baseURL)
	return err == nil
}
