package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/memos-run/memos/recall"
	"github.com/memos-run/memos/vectorstub"
)

var (
	recallQuery      string
	recallLimit      int
	recallActiveOnly bool
	recallGraph      bool
	recallYAML       bool
)

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "score and rank blocks against a query (§4.F)",
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().StringVar(&recallQuery, "query", "", "query text")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 10, "maximum hits to return")
	recallCmd.Flags().BoolVar(&recallActiveOnly, "active-only", false, "exclude superseded/rejected/rolled_back blocks")
	recallCmd.Flags().BoolVar(&recallGraph, "graph", false, "apply the two-hop cross-reference booster")
	recallCmd.Flags().BoolVar(&recallYAML, "yaml", false, "emit YAML instead of a table")
	recallCmd.MarkFlagRequired("query")
}

func runRecall(cmd *cobra.Command, args []string) error {
	cfg := loadWorkspaceConfig(workspaceFlag)

	var backend vectorstub.Backend
	if cfg.Recall.Backend == "vector" {
		backend = loadVectorBackend()
	}

	engine := recall.NewEngine(workspaceFlag, backend)
	hits, err := engine.Recall(recallQuery, recall.Options{
		Limit:      recallLimit,
		ActiveOnly: recallActiveOnly,
		Graph:      recallGraph,
	})
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}
	if recallYAML {
		data, err := yaml.Marshal(hits)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Type", "Score", "Status", "Via Graph", "Excerpt"})
	for _, h := range hits {
		viaGraph := ""
		if h.ViaGraph {
			viaGraph = "yes"
		}
		table.Append([]string{
			h.ID,
			h.Type,
			fmt.Sprintf("%.4f", h.Score),
			h.Status,
			viaGraph,
			h.Excerpt,
		})
	}
	table.Render()
	return nil
}
