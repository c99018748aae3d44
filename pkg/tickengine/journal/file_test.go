package journal_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
)

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) journal.Store {
		store, err := journal.NewFileStore(afero.NewMemMapFs(), "/var/tick")
		require.NoError(t, err)
		return store
	})
}

func TestFileStore_DailyMetricsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := journal.NewFileStore(fs, "/var/tick")
	require.NoError(t, err)

	day1 := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	require.NoError(t, store.WriteMetrics(metricsAt(day1, 1)))
	require.NoError(t, store.WriteMetrics(metricsAt(day1.Add(time.Second), 2)))
	require.NoError(t, store.WriteMetrics(metricsAt(day2, 3)))

	first, err := afero.ReadFile(fs, "/var/tick/metrics/metrics_20240501.jsonl")
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, "/var/tick/metrics/metrics_20240502.jsonl")
	require.NoError(t, err)

	lines := decodeLines(t, first)
	require.Len(t, lines, 2)
	assert.Equal(t, float64(1), lines[0]["tick_count"])
	assert.Equal(t, float64(2), lines[1]["tick_count"])
	require.Contains(t, lines[0], "performance")
	perf := lines[0]["performance"].(map[string]any)
	assert.InDelta(t, 0.003, perf["event_latency"], 1e-9, "latency is written in seconds")
	assert.Contains(t, lines[0], "thermal_state")

	assert.Len(t, decodeLines(t, second), 1)
}

func TestFileStore_AuditLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := journal.NewFileStore(fs, "/var/tick")
	require.NoError(t, err)

	require.NoError(t, store.WriteAudit(auditOf(journal.AuditStart, 0)))

	// Append a corrupt line, then a valid record.
	f, err := fs.OpenFile(store.AuditPath(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("not json\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.WriteAudit(auditOf(journal.AuditStop, 5)))

	lines := decodeLines(t, mustRead(t, fs, "/var/tick/tick_events.log"), "not json")
	require.Len(t, lines, 2)
	assert.Equal(t, "start", lines[0]["type"])

	recs, err := store.RecentAudit(0)
	require.NoError(t, err)
	require.Len(t, recs, 2, "undecodable lines are skipped")
	assert.Equal(t, journal.AuditStop, recs[1].Type)
}

func TestFileStore_RecentAuditWithoutLog(t *testing.T) {
	store, err := journal.NewFileStore(afero.NewMemMapFs(), "/empty")
	require.NoError(t, err)

	recs, err := store.RecentAudit(5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func mustRead(t *testing.T, fs afero.Fs, path string) []byte {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return data
}

// decodeLines decodes JSON lines, skipping the given raw lines.
func decodeLines(t *testing.T, data []byte, skip ...string) []map[string]any {
	t.Helper()

	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
next:
	for scanner.Scan() {
		for _, s := range skip {
			if scanner.Text() == s {
				continue next
			}
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}
