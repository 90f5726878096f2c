package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/memos-run/memos/vectorstub"
)

// configFileName is the workspace-level config file naming the recall
// backend (§9's module-level backend selection note).
const configFileName = "mem-os.json"

type recallConfig struct {
	Backend string `json:"backend"`
}

type workspaceConfig struct {
	Recall recallConfig `json:"recall"`
}

// loadWorkspaceConfig reads mem-os.json from root, defaulting to the
// tfidf (BM25F) backend when the file is absent or unreadable.
func loadWorkspaceConfig(root string) workspaceConfig {
	cfg := workspaceConfig{Recall: recallConfig{Backend: "tfidf"}}
	data, err := os.ReadFile(filepath.Join(root, configFileName))
	if err != nil {
		return cfg
	}
	var parsed workspaceConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return cfg
	}
	if parsed.Recall.Backend == "" {
		parsed.Recall.Backend = "tfidf"
	}
	return parsed
}

// loadVectorBackend resolves mem-os.json's "vector" backend selection.
// No concrete vector backend ships with this module (§9's module-level
// backend selection note names it as a pluggable trait only), so this
// always reports unavailable and recall.Engine falls back to BM25F.
func loadVectorBackend() vectorstub.Backend {
	return nil
}
