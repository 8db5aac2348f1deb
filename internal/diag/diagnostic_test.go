package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "line",
			d:    New("/p/src/a.go", 7, KindWrongTested, "wrong TESTED coverage annotation"),
			want: "/p/src/a.go:7: wrong TESTED coverage annotation",
		},
		{
			name: "file",
			d:    New("/p/src/a.go", 0, KindMissingFileNotTested, "missing FILE NOT TESTED coverage annotation"),
			want: "/p/src/a.go: missing FILE NOT TESTED coverage annotation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.String())
		})
	}
}

func TestKindSeverity(t *testing.T) {
	warnings := []Kind{KindRedundant, KindNestedBegin, KindNestedEnd, KindRepeatedFile, KindDeprecatedToken}
	for _, k := range warnings {
		assert.Equal(t, SeverityWarning, k.Severity(), "kind %s", k)
	}
	errs := []Kind{
		KindLineInUntestedFile, KindWrongTested, KindWrongNotTested,
		KindNonExecutable, KindWrongFileNotTested, KindMissingFileNotTested,
	}
	for _, k := range errs {
		assert.Equal(t, SeverityError, k.Severity(), "kind %s", k)
	}
}

func TestHasErrorsAndCount(t *testing.T) {
	diags := []Diagnostic{
		New("a", 1, KindRedundant, "x"),
		New("a", 2, KindNestedBegin, "x"),
	}
	assert.False(t, HasErrors(diags))

	diags = append(diags, New("a", 3, KindWrongNotTested, "x"))
	assert.True(t, HasErrors(diags))

	w, e := Count(diags)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, e)
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	err := p.PrintAll([]Diagnostic{
		New("/p/src/a.go", 3, KindWrongNotTested, "wrong NOT TESTED coverage annotation"),
		New("/p/src/b.go", 0, KindWrongFileNotTested, "wrong FILE NOT TESTED coverage annotation"),
	})
	require.NoError(t, err)

	want := "/p/src/a.go:3: wrong NOT TESTED coverage annotation\n" +
		"/p/src/b.go: wrong FILE NOT TESTED coverage annotation\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	require.NoError(t, p.Print(New("f", 1, KindWrongTested, "bad")))
	out := buf.String()
	assert.Contains(t, out, "f:1: bad")
	assert.Contains(t, out, "\x1b[31m")
}
