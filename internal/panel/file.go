package panel

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/langid/internal/providers/mock"
)

// mockFile is the on-disk shape of a simulated-provider panel file.
type mockFile struct {
	Providers []mock.Config `yaml:"providers"`
}

// LoadMockFile reads extra simulated providers from a YAML file.
func LoadMockFile(path string) ([]mock.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "panel: read panel file")
	}

	var f mockFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "panel: parse panel file")
	}

	seen := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		switch {
		case p.Name == "":
			return nil, eris.Errorf("panel: provider %d in %s has no name", i, path)
		case seen[p.Name]:
			return nil, eris.Errorf("panel: duplicate provider %q in %s", p.Name, path)
		case p.Confidence < 0 || p.Confidence > 1:
			return nil, eris.Errorf("panel: provider %q confidence %v outside [0,1]", p.Name, p.Confidence)
		case p.Tokens < 0 || p.PerToken < 0 || p.LatencyMs < 0:
			return nil, eris.Errorf("panel: provider %q has negative cost or latency", p.Name)
		}
		seen[p.Name] = true
	}
	return f.Providers, nil
}
