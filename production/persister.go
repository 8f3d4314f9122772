// Package production provides production integrations: persistence, event
// publishing and visualization, implementing the interpreter package's
// Persister/EventPublisher/Visualizer interfaces.
package production

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/internal/statevalue"
)

// snapshot is the serializable projection of an engine.State: just enough
// to reconstitute a State via engine.Create once paired with the chart
// that produced it. Actions, activities and history are in-flight step
// detail, not durable configuration, and are dropped.
type snapshot struct {
	MachineID string           `json:"machineId" yaml:"machineId"`
	Value     statevalue.Value `json:"value" yaml:"value"`
	Context   map[string]any   `json:"context" yaml:"context"`
}

func toSnapshot(machineID string, state engine.State) snapshot {
	return snapshot{MachineID: machineID, Value: state.Value, Context: state.Context.Snapshot()}
}

// JSONPersister is a file-based Persister using JSON serialization. It is
// bound to a single chart, since Persister.Load reconstitutes a full
// engine.State (nextEvents, done) and that requires the chart the
// snapshot's Value was computed against.
type JSONPersister struct {
	dir   string
	chart *chart.Chart
}

// NewJSONPersister creates a JSONPersister rooted at dir, for snapshots of
// c's instances. It creates dir if absent.
func NewJSONPersister(dir string, c *chart.Chart) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir, chart: c}, nil
}

// Save implements interpreter.Persister.
func (p *JSONPersister) Save(machineID string, state engine.State) error {
	data, err := json.MarshalIndent(toSnapshot(machineID, state), "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	fn := filepath.Join(p.dir, machineID+".json")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

// Load implements interpreter.Persister.
func (p *JSONPersister) Load(machineID string) (engine.State, error) {
	fn := filepath.Join(p.dir, machineID+".json")
	data, err := os.ReadFile(fn)
	if err != nil {
		return engine.State{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return engine.State{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return engine.Create(p.chart, s.Value, chart.NewContext(s.Context))
}

// YAMLPersister is a file-based Persister using YAML serialization.
type YAMLPersister struct {
	dir   string
	chart *chart.Chart
}

// NewYAMLPersister creates a YAMLPersister rooted at dir, for snapshots of
// c's instances. It creates dir if absent.
func NewYAMLPersister(dir string, c *chart.Chart) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir, chart: c}, nil
}

// Save implements interpreter.Persister.
func (p *YAMLPersister) Save(machineID string, state engine.State) error {
	data, err := yaml.Marshal(toSnapshot(machineID, state))
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	fn := filepath.Join(p.dir, machineID+".yaml")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

// Load implements interpreter.Persister.
func (p *YAMLPersister) Load(machineID string) (engine.State, error) {
	fn := filepath.Join(p.dir, machineID+".yaml")
	data, err := os.ReadFile(fn)
	if err != nil {
		return engine.State{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var s snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return engine.State{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return engine.Create(p.chart, s.Value, chart.NewContext(s.Context))
}
