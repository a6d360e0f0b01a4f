// Package leaderboard maintains the persisted best-ever result per
// dataset/mode key on a given host. The document is the engine's only
// durable state; callers serialize writers externally.
package leaderboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bcsv-io/benchstand/pkg/fsutil"
	"github.com/bcsv-io/benchstand/pkg/results"
)

// FileName is the leaderboard document name inside a host results root.
const FileName = "leaderboard.json"

// Entry is the best observed result for one dataset/mode key.
type Entry struct {
	Dataset     string    `json:"dataset"`
	Mode        string    `json:"mode"`
	BestTotalMS float64   `json:"best_total_ms"`
	BestWriteMS float64   `json:"best_write_ms"`
	BestReadMS  float64   `json:"best_read_ms"`
	FileSize    int64     `json:"file_size"`
	NumRows     int64     `json:"num_rows"`
	Run         string    `json:"run"`
	GitVersion  string    `json:"git_version"`
	Timestamp   time.Time `json:"timestamp"`
}

// Board is the whole leaderboard document for one host.
type Board struct {
	Updated *time.Time       `json:"updated"`
	Entries map[string]Entry `json:"entries"`
}

// EntryKey builds the map key for a record. The raw mode string is kept
// here, unlike workload matching which strips the tracking suffix.
func EntryKey(dataset, mode string) string {
	return fmt.Sprintf("%s/%s", dataset, mode)
}

// Load reads the leaderboard from hostRoot, returning an empty board if
// no document exists yet.
func Load(hostRoot string) (*Board, error) {
	path := filepath.Join(hostRoot, FileName)

	board := &Board{Entries: make(map[string]Entry)}

	if err := fsutil.ReadJSON(path, board); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Board{Entries: make(map[string]Entry)}, nil
		}

		return nil, err
	}

	if board.Entries == nil {
		board.Entries = make(map[string]Entry)
	}

	return board, nil
}

// Save writes the board back atomically.
func Save(hostRoot string, board *Board) error {
	return fsutil.WriteJSON(filepath.Join(hostRoot, FileName), board)
}

// Update folds new results into the board. An entry is replaced only
// when the candidate total is strictly lower than the stored best, so
// entries improve monotonically and never regress. Returns true when
// anything changed; in that case the board's Updated timestamp advances.
func (b *Board) Update(records []results.ResultRecord, runID, gitVersion string, now time.Time) bool {
	if gitVersion == "" {
		gitVersion = "unknown"
	}

	updated := false

	for i := range records {
		r := &records[i]
		if r.Skipped() {
			continue
		}

		total := r.TotalTimeMS()
		if total <= 0 {
			continue
		}

		key := EntryKey(r.Dataset, r.Mode)

		entry, exists := b.Entries[key]
		if exists && total >= entry.BestTotalMS {
			continue
		}

		b.Entries[key] = Entry{
			Dataset:     r.Dataset,
			Mode:        r.Mode,
			BestTotalMS: total,
			BestWriteMS: r.WriteTimeMS,
			BestReadMS:  r.ReadTimeMS,
			FileSize:    r.FileSize,
			NumRows:     r.NumRows,
			Run:         runID,
			GitVersion:  gitVersion,
			Timestamp:   now,
		}
		updated = true
	}

	if updated {
		b.Updated = &now
	}

	return updated
}

// SortedKeys returns the entry keys in lexical order.
func (b *Board) SortedKeys() []string {
	keys := make([]string, 0, len(b.Entries))
	for key := range b.Entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
