package syntax

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

const sample = `# statements for the T2T flow
! legacy comment style
T2T_01_MULTIPLE = SELECT A, B FROM T1 WHERE D = ? \
                  ORDER BY A
T2T_02=EXEC dbo.usp_report ?, ?
jdbc:url = jdbc:sqlserver://db:1433
this line has no separator
ssh.disk=df -h {{1}}\tdone
escaped\=key = a\=b
empty=

  indented = yes
`

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"T2T_01_MULTIPLE": "SELECT A, B FROM T1 WHERE D = ? ORDER BY A",
		"T2T_02":          "EXEC dbo.usp_report ?, ?",
		"jdbc:url":        "jdbc:sqlserver://db:1433",
		"ssh.disk":        "df -h {{1}}\tdone",
		"escaped=key":     "a=b",
		"empty":           "",
		"indented":        "yes",
	}, props)
}

func TestParseProperties_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty key", "= value\n"},
		{"empty key after skipped line", "just a line\n  = value\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProperties(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseProperties_SkipsLinesWithoutEquals(t *testing.T) {
	props, err := ParseProperties(strings.NewReader("A=1\nheader: not a key\nB = x:y\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x:y"}, props)
}

func TestParseProperties_EscapedTrailingBackslash(t *testing.T) {
	props, err := ParseProperties(strings.NewReader("path=C:\\\\\nnext=1\n"))
	require.NoError(t, err)
	assert.Equal(t, `C:\`, props["path"])
	assert.Equal(t, "1", props["next"])
}

func TestCatalog_LoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sql.properties")
	require.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	text, ok := c.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "1", text)

	require.NoError(t, os.WriteFile(path, []byte("A=2\nB=3\n"), 0o644))
	require.NoError(t, c.Reload())
	assert.Equal(t, []string{"A", "B"}, c.Keys())

	// a broken file keeps the previous entries
	require.NoError(t, os.WriteFile(path, []byte("= broken\n"), 0o644))
	assert.Error(t, c.Reload())
	text, _ = c.Lookup("A")
	assert.Equal(t, "2", text)
}

func TestCatalog_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.properties"))
	assert.Error(t, err)
}

func TestCatalog_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sql.properties")
	require.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 4)
	require.NoError(t, c.Watch(ctx, func(err error) { reloaded <- err }))

	require.NoError(t, os.WriteFile(path, []byte("A=changed\n"), 0o644))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	text, _ := c.Lookup("A")
	assert.Equal(t, "changed", text)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCatalog_WatchLogsEachReloadOnce(t *testing.T) {
	out := &lockedBuffer{}
	log.SetOutput(out, out)
	t.Cleanup(func() { log.SetOutput(os.Stdout, os.Stderr) })

	path := filepath.Join(t.TempDir(), "sql.properties")
	require.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx, nil))

	require.NoError(t, os.WriteFile(path, []byte("A=changed\n"), 0o644))
	require.Eventually(t, func() bool {
		text, _ := c.Lookup("A")
		return text == "changed" && strings.Contains(out.String(), "Reloaded")
	}, 5*time.Second, 10*time.Millisecond)

	// let a trailing debounced event land before counting
	time.Sleep(3 * debounceWindow)
	assert.Equal(t, 1, strings.Count(out.String(), "Reloaded SQL properties"))
}

func TestFromMap(t *testing.T) {
	src := map[string]string{"K": "SELECT 1"}
	c := FromMap(src)
	src["K"] = "mutated"

	text, ok := c.Lookup("K")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", text)
	assert.NoError(t, c.Reload())
	assert.Error(t, c.Watch(context.Background(), nil))
}
