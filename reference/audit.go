package reference

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// AuditEntry is one bulk update as recorded in the daily audit file.
type AuditEntry struct {
	Timestamp string             `json:"timestamp"`
	Prices    map[string]float64 `json:"prices"`
	Count     int                `json:"count"`
}

// AuditLog appends bulk updates to <dir>/price_updates_YYYY-MM-DD.json, a
// JSON array per UTC day. A nil or dir-less AuditLog records nothing.
type AuditLog struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewAuditLog creates an AuditLog writing into dir. An empty dir disables it.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{dir: dir, now: time.Now}
}

// Path returns the audit file for day t.
func (a *AuditLog) Path(t time.Time) string {
	return filepath.Join(a.dir, "price_updates_"+t.UTC().Format("2006-01-02")+".json")
}

// Record appends an entry for an update the store accepted. Failures are
// logged and otherwise ignored.
func (a *AuditLog) Record(timestamp string, prices map[string]float64) {
	if a == nil || a.dir == "" {
		return
	}
	now := a.now()
	if timestamp == "" {
		timestamp = now.UTC().Format(time.RFC3339)
	}
	entry := AuditEntry{Timestamp: timestamp, Prices: prices, Count: len(prices)}

	if err := a.append(a.Path(now), entry); err != nil {
		slog.Error("failed to record price update", "dir", a.dir, "error", err)
	}
}

// Entries reads the audit file for day t.
func (a *AuditLog) Entries(t time.Time) ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return readEntries(a.Path(t))
}

func (a *AuditLog) append(path string, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return eris.Wrap(err, "create audit dir")
	}
	entries, err := readEntries(path)
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal audit log")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return eris.Wrap(err, "write audit log")
	}
	return eris.Wrap(os.Rename(tmp, path), "replace audit log")
}

func readEntries(path string) ([]AuditEntry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "read audit log")
	}
	var entries []AuditEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "audit log %s is corrupt", filepath.Base(path))
	}
	return entries, nil
}
