package check

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"covannot/internal/config"
	"covannot/internal/coverage"
	"covannot/internal/diag"
)

const source = `package a

func F(x int) int {
	if x > 0 {
		return 1
	}
	return 0 // NOT TESTED
}
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// report renders a single-class Cobertura document; hits maps line numbers to
// hit counts.
func report(filename string, hits map[int]int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" ?>
<coverage><packages><package><classes>
<class filename="` + filename + `"><lines>
`)
	for n := 1; n <= 20; n++ {
		if h, ok := hits[n]; ok {
			b.WriteString("<line number=\"" + strconv.Itoa(n) + "\" hits=\"" + strconv.Itoa(h) + "\"/>\n")
		}
	}
	b.WriteString("</lines></class></classes></package></packages></coverage>\n")
	return b.String()
}

func run(t *testing.T, dir string, cfg *config.Config) (*Result, error) {
	t.Helper()
	r, err := NewRunner(dir, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r.Run(context.Background())
}

func TestRun_Consistent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", source)
	writeFile(t, dir, "cobertura.xml", report("src/a.go", map[int]int{3: 1, 4: 2, 5: 1, 7: 0}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.False(t, res.Failed())
	assert.Equal(t, 1, res.Sources)
	assert.Equal(t, []string{"cobertura.xml"}, res.Reports)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_WrongAnnotation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", source)
	writeFile(t, dir, "cobertura.xml", report("src/a.go", map[int]int{3: 1, 4: 1, 5: 0, 7: 3}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	var got []string
	for _, d := range res.Diagnostics {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{
		"src/a.go:5: wrong TESTED coverage annotation",
		"src/a.go:7: wrong NOT TESTED coverage annotation",
	}, got)
	assert.True(t, res.Failed())
}

func TestRun_MarkedBraceLinesAreChecked(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"closing brace", "} // NOT TESTED"},
		{"else", "} else { // NOT TESTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "src/a.go", "a()\n"+tt.line+"\n")
			writeFile(t, dir, "cobertura.xml", report("src/a.go", map[int]int{1: 1, 2: 1}))

			res, err := run(t, dir, nil)
			require.NoError(t, err)
			require.Len(t, res.Diagnostics, 1)
			assert.Equal(t, "src/a.go:2: wrong NOT TESTED coverage annotation", res.Diagnostics[0].String())
			assert.True(t, res.Failed())
		})
	}
}

func TestRun_WarningsDoNotFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/b.go", "a() // BEGIN NOT TESTED\nb() // BEGIN NOT TESTED\nc() // END NOT TESTED\n")
	writeFile(t, dir, "cobertura.xml", report("src/b.go", map[int]int{1: 0, 2: 0, 3: 0}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.KindNestedBegin, res.Diagnostics[0].Kind)
	assert.Equal(t, "src/b.go", res.Diagnostics[0].Path)
	assert.False(t, res.Failed())
}

func TestRun_FileLevelVerdicts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/gen.go", "// FILE NOT TESTED\nfunc G() {}\n")
	writeFile(t, dir, "src/run.go", "// FILE NOT TESTED\nfunc R() {}\n")
	writeFile(t, dir, "src/new.go", "func N() {}\n")
	writeFile(t, dir, "tools/tool.go", "func T() {}\n")
	writeFile(t, dir, "cobertura.xml", report("src/run.go", map[int]int{2: 1}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	var got []string
	for _, d := range res.Diagnostics {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{
		"src/new.go: missing FILE NOT TESTED coverage annotation",
		"src/run.go: wrong FILE NOT TESTED coverage annotation",
	}, got)
}

func TestRun_MergesReports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "x()\ny()\n")
	writeFile(t, dir, "unit/cobertura.xml", report("src/a.go", map[int]int{1: 0, 2: 1}))
	writeFile(t, dir, "integration/cobertura.xml", report("src/a.go", map[int]int{1: 4, 2: 0}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"integration/cobertura.xml", "unit/cobertura.xml"}, res.Reports)
}

func TestRun_MergesEachReportIntoRunMap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "x()\n")
	writeFile(t, dir, "src/b.go", "func B() {}\n")
	writeFile(t, dir, "unit/cobertura.xml", report("src/a.go", map[int]int{1: 1}))
	writeFile(t, dir, "integration/cobertura.xml", `<coverage><packages><package><classes>
<class filename="src/b.go"><lines/></class>
</classes></package></packages></coverage>
`)

	core, logs := observer.New(zapcore.DebugLevel)
	r, err := NewRunner(dir, nil, zap.New(core))
	require.NoError(t, err)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	// src/b.go only appears as an empty class, which still counts as covered
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 2, logs.FilterMessage("read coverage report").Len())

	var ops []string
	for _, e := range logs.FilterMessage("operation completed").All() {
		ops = append(ops, e.ContextMap()["op"].(string))
	}
	assert.Equal(t, []string{"scan", "ingest", "check"}, ops)
}

func TestRun_FlakyPolicyFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "x() // FLAKY TESTED\n")
	writeFile(t, dir, "cobertura.xml", report("src/a.go", map[int]int{1: 1}))

	res, err := run(t, dir, nil)
	require.NoError(t, err)
	assert.False(t, res.Failed())

	cfg := config.DefaultConfig()
	cfg.FlakyPolicy = "not-tested"
	res, err = run(t, dir, cfg)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.KindWrongNotTested, res.Diagnostics[0].Kind)
}

func TestRun_StructuralErrors(t *testing.T) {
	t.Run("no report", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "src/a.go", source)
		_, err := run(t, dir, nil)
		assert.ErrorIs(t, err, ErrNoReport)
	})

	t.Run("unresolvable source", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "src/a.go", source)
		writeFile(t, dir, "cobertura.xml", report("src/gone.go", map[int]int{1: 1}))
		res, err := run(t, dir, nil)
		assert.ErrorIs(t, err, coverage.ErrUnresolvedSource)
		assert.Nil(t, res)
	})

	t.Run("malformed report", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "src/a.go", source)
		writeFile(t, dir, "cobertura.xml", "<coverage><class filename=")
		_, err := run(t, dir, nil)
		assert.ErrorIs(t, err, coverage.ErrMalformedReport)
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "src/a.go", source)
		writeFile(t, dir, "cobertura.xml", report("src/a.go", nil))
		r, err := NewRunner(dir, nil, zaptest.NewLogger(t))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = r.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewRunner_Errors(t *testing.T) {
	_, err := NewRunner(filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Extensions = nil
	_, err = NewRunner(t.TempDir(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
