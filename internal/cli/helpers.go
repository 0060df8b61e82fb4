package cli

import (
	"fmt"

	"github.com/codex-k8s/chartctl/internal/document"
	"github.com/codex-k8s/chartctl/internal/env"
	"github.com/codex-k8s/chartctl/internal/resolve"
)

// loadPlan loads a document file and resolves it into a deployment plan.
func loadPlan(path, targetManifest string) (*resolve.Plan, error) {
	docs, err := document.LoadFile(path)
	if err != nil {
		return nil, err
	}
	plan, err := resolve.Resolve(docs, targetManifest)
	if err != nil {
		return nil, fmt.Errorf("resolve documents: %w", err)
	}
	return plan, nil
}

// buildOverrides assembles the values override layer from .env-style files,
// the --set list and the optional values file. Inline vars override file vars.
func buildOverrides(inline, valuesFile string, envFiles []string) (map[string]any, env.Vars, error) {
	fileVars, err := env.LoadEnvFiles("", envFiles)
	if err != nil {
		return nil, nil, err
	}
	inlineVars, err := env.ParseInlineVars(inline)
	if err != nil {
		return nil, nil, err
	}
	vars := env.Merge(fileVars, inlineVars)

	var values map[string]any
	if valuesFile != "" {
		values, err = env.LoadValuesFile(valuesFile)
		if err != nil {
			return nil, nil, err
		}
	}
	return values, vars, nil
}
