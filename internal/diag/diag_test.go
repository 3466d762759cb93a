package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func span(path string, line uint32) SourceSpan {
	return SourceSpan{
		Start: SourceLocation{Path: path, Line: line, Column: 1},
		End:   SourceLocation{Path: path, Line: line, Column: 1},
	}
}

func TestErrorAccumulates(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	d.Error("first", SourceSpan{})
	d.Error("second", SourceSpan{})
	d.Warn("just a warning", SourceSpan{})

	require.Equal(t, 2, d.ErrorCount())
	require.Contains(t, buf.String(), "stmc: error: first")
	require.Contains(t, buf.String(), "stmc: warning: just a warning")
}

func TestFatalPanicsWithSentinel(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		msg, ok := IsFatal(r)
		require.True(t, ok)
		require.Equal(t, "boom", msg)
	}()
	d.Fatal("boom", SourceSpan{})
}

func TestSourceSnippetRendering(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.SetReadFile(func(string) ([]byte, error) {
		return []byte("line one\nline two\nline three\n"), nil
	})

	d.Error("bad thing", span("input.stm", 2))

	out := buf.String()
	require.Contains(t, out, "┌─[input.stm:2]")
	require.Contains(t, out, "line two")
	require.NotContains(t, out, "line three")
	require.Contains(t, out, "╰──")
}

func TestSpanMerge(t *testing.T) {
	a := SourceSpan{
		Start: SourceLocation{Path: "f", Line: 1, Column: 4},
		End:   SourceLocation{Path: "f", Line: 1, Column: 9},
	}
	b := SourceSpan{
		Start: SourceLocation{Path: "f", Line: 1, Column: 1},
		End:   SourceLocation{Path: "f", Line: 3, Column: 2},
	}

	merged := a.Merge(b)
	require.Equal(t, uint32(1), merged.Start.Column)
	require.Equal(t, uint32(3), merged.End.Line)
}

func TestIsFatalRejectsOtherPanics(t *testing.T) {
	_, ok := IsFatal("some other panic")
	require.False(t, ok)
}
