package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/gateway"
)

// RunAnalyze scores a user in one shot: amicooked analyze <uid> [metrics.json].
// A metrics file replaces the stored metrics document before the run.
func RunAnalyze(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: amicooked analyze <uid> [metrics.json]")
		os.Exit(1)
	}
	uid := args[0]

	rt := buildRuntime(mustLoadConfig())
	defer rt.Close()

	ctx := context.Background()

	if len(args) > 1 {
		metrics, err := readMetricsFile(args[1])
		if err != nil {
			fmt.Printf("Failed to read metrics: %v\n", err)
			os.Exit(1)
		}
		if err := rt.docs.Set(ctx, docstore.MetricsPath(uid), metrics); err != nil {
			fmt.Printf("Failed to store metrics: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Stored %d metrics for %s.\n", len(metrics), uid)
	}

	a, err := rt.openAgent(ctx, uid)
	if err != nil {
		fmt.Printf("Failed to start session: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Scoring...")
	res, err := a.AnalyzeProfile(ctx, nil, "")
	if err != nil {
		fmt.Println(agent.FormatUserError(err))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(gateway.FormatResult(res))
}

func readMetricsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var metrics map[string]any
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%s has no metrics", path)
	}
	return metrics, nil
}
