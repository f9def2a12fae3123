package capture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// Metadata is written next to the dataset screenshots as metadata.json.
type Metadata struct {
	Task        string          `json:"task"`
	App         string          `json:"app"`
	TaskName    string          `json:"taskName"`
	Description string          `json:"description"`
	CapturedAt  time.Time       `json:"capturedAt"`
	States      []StateMetadata `json:"states"`
}

// StateMetadata describes one captured state in dataset order.
type StateMetadata struct {
	Index       int       `json:"index"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Dataset organizes captured states under <root>/<app>/<taskName>.
type Dataset struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// NewDataset creates a dataset writer rooted at root.
func NewDataset(logger *zap.Logger, root string) *Dataset {
	return &Dataset{root: root, logger: logger.Named("dataset"), now: time.Now}
}

// Dir returns the directory a plan's dataset is written to.
func (d *Dataset) Dir(p schemas.Plan) string {
	return filepath.Join(d.root, pathSegment(p.App, "app"), pathSegment(p.TaskName, "task"))
}

// Save copies every state to NN-<name>.png in capture order and writes
// metadata.json. It returns the dataset directory.
func (d *Dataset) Save(task string, p schemas.Plan, states []schemas.CapturedState) (string, error) {
	dir := d.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}

	meta := Metadata{
		Task:        task,
		App:         p.App,
		TaskName:    p.TaskName,
		Description: p.Description,
		CapturedAt:  d.now(),
		States:      make([]StateMetadata, 0, len(states)),
	}
	for i, s := range states {
		dest := filepath.Join(dir, fmt.Sprintf("%02d-%s.png", i+1, s.Name))
		if err := copyFile(s.Path, dest); err != nil {
			return "", err
		}
		meta.States = append(meta.States, StateMetadata{
			Index:       i + 1,
			Name:        s.Name,
			Description: s.Description,
			Timestamp:   s.Timestamp,
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write dataset metadata: %w", err)
	}

	d.logger.Info("Dataset saved.", zap.String("path", dir), zap.Int("states", len(states)))
	return dir, nil
}

// pathSegment keeps oracle-provided names from escaping the dataset root.
func pathSegment(s, fallback string) string {
	clean := filepath.Base(filepath.Clean("/" + s))
	if clean == "/" || clean == "." || clean == "" {
		return fallback
	}
	return clean
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open screenshot %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy screenshot to %s: %w", dst, err)
	}
	return out.Close()
}
