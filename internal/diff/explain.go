package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// ValuesDiff renders a unified diff between a chart's declared values and
// its effective values after the override layer is merged. The result is
// shown by the plan command so operators can see what an override changes
// before anything touches the cluster. Returns an empty string when the two
// mappings serialize identically.
func ValuesDiff(declared, effective map[string]any) (string, error) {
	a, err := yaml.Marshal(declared)
	if err != nil {
		return "", fmt.Errorf("serialize declared values: %w", err)
	}
	b, err := yaml.Marshal(effective)
	if err != nil {
		return "", fmt.Errorf("serialize effective values: %w", err)
	}
	if string(a) == string(b) {
		return "", nil
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "values",
		ToFile:   "values+overrides",
		Context:  2,
	})
	if err != nil {
		return "", fmt.Errorf("compute values diff: %w", err)
	}
	return out, nil
}
