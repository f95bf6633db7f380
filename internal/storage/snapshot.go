package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// PortfolioSnapshot is a point-in-time copy of one broker's positions.
type PortfolioSnapshot struct {
	Broker    domain.BrokerName `json:"broker"`
	TakenAtMs int64             `json:"takenAtMs"`
	Portfolio domain.Portfolio  `json:"portfolio"`
}

// SnapshotManager writes portfolio snapshots as JSON files named
// <broker>.<takenAtMs>.json under dir.
type SnapshotManager struct {
	dir string
}

func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// NewPortfolioSnapshot deep-copies p so later fills cannot alter it.
func NewPortfolioSnapshot(broker domain.BrokerName, takenAtMs int64, p domain.Portfolio) *PortfolioSnapshot {
	cp := p
	cp.Positions = make([]domain.PositionView, len(p.Positions))
	for i, v := range p.Positions {
		if v.Raw != nil {
			raw := make(map[string]any, len(v.Raw))
			for k, x := range v.Raw {
				raw[k] = x
			}
			v.Raw = raw
		}
		cp.Positions[i] = v
	}
	return &PortfolioSnapshot{Broker: broker, TakenAtMs: takenAtMs, Portfolio: cp}
}

type snapFile struct {
	path string
	ts   int64
}

func parseSnapName(name string) (domain.BrokerName, int64, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return domain.BrokerName(base[:i]), ts, true
}

// list returns broker's snapshot files, newest first.
func (sm *SnapshotManager) list(broker domain.BrokerName) ([]snapFile, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return nil, err
	}

	var files []snapFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, ts, ok := parseSnapName(entry.Name())
		if !ok || b != broker {
			continue
		}
		files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), ts: ts})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts > files[j].ts })
	return files, nil
}

// Save writes snap to disk and returns the file path.
func (sm *SnapshotManager) Save(snap *PortfolioSnapshot) (string, error) {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := filepath.Join(sm.dir, fmt.Sprintf("%s.%d.json", snap.Broker, snap.TakenAtMs))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Portfolio snapshot saved",
		slog.String("broker", string(snap.Broker)),
		slog.Int("positions", len(snap.Portfolio.Positions)),
		slog.String("path", path))
	return path, nil
}

// LoadLatest returns broker's newest snapshot, or nil when there is none.
func (sm *SnapshotManager) LoadLatest(broker domain.BrokerName) (*PortfolioSnapshot, error) {
	files, err := sm.list(broker)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(files[0].path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Cleanup keeps broker's newest keepCount snapshots and removes the rest.
func (sm *SnapshotManager) Cleanup(broker domain.BrokerName, keepCount int) error {
	files, err := sm.list(broker)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if keepCount < 0 {
		keepCount = 0
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		} else {
			slog.Debug("Removed old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
