package relay

import (
	"context"
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

type scenarioUpdate struct {
	Formats map[string]int `yaml:"formats"`
	Fails   bool           `yaml:"fails"`
}

type scenario struct {
	Name      string           `yaml:"name"`
	Chain     []string         `yaml:"chain"`
	Stateless []string         `yaml:"stateless"`
	Updates   []scenarioUpdate `yaml:"updates"`
	Want      map[string]int   `yaml:"want"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	raw, err := os.ReadFile("testdata/scenarios.yaml")
	if err != nil {
		t.Fatalf("read fixtures: %v", err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		t.Fatalf("parse fixtures: %v", err)
	}
	if len(file.Scenarios) == 0 {
		t.Fatal("no scenarios in fixture file")
	}
	return file.Scenarios
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			pipe := NewPipeline()
			ep := pipe.NewEndpoint("out-0")

			stateless := make(map[string]bool, len(sc.Stateless))
			for _, name := range sc.Stateless {
				stateless[name] = true
			}
			elements := make(map[string]*Element, len(sc.Chain))
			var prev *Element
			for _, name := range sc.Chain {
				var opts []ElementOption
				if !stateless[name] {
					opts = append(opts, WithStateHooks(testHooks(nil, nil)))
				}
				e := NewElement(name, opts...)
				if err := ep.Attach(ctx, e, prev); err != nil {
					t.Fatalf("attach %s: %v", name, err)
				}
				elements[name] = e
				prev = e
			}

			for i, up := range sc.Updates {
				err := pipe.Update(ctx, func(tx *Transaction) error {
					if err := tx.AddChain(ctx, ep); err != nil {
						return err
					}
					for name, format := range up.Formats {
						st, ok := tx.NewElementState(elements[name])
						if !ok {
							t.Fatalf("update %d: no working copy for %s", i, name)
						}
						st.(*busState).Format = format
					}
					return nil
				})
				if up.Fails && err == nil {
					t.Fatalf("update %d: expected failure", i)
				}
				if !up.Fails && err != nil {
					t.Fatalf("update %d: %v", i, err)
				}
			}

			for name, want := range sc.Want {
				got := elements[name].State().(*busState).Format
				if got != want {
					t.Errorf("%s: expected format %d, got %d", name, want, got)
				}
			}
			for _, name := range sc.Stateless {
				if elements[name].State() != nil {
					t.Errorf("%s: stateless element grew persisted state", name)
				}
			}
		})
	}
}
