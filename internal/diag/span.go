package diag

import "fmt"

// SourceLocation is a single point in an input file.
type SourceLocation struct {
	Path   string
	Line   uint32
	Column uint32
}

// String implements fmt.Stringer.
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// SourceSpan marks a contiguous region of an input file. Every tree node and
// diagnostic carries one.
type SourceSpan struct {
	Start SourceLocation
	End   SourceLocation
}

// Span returns a span covering a single location.
func Span(loc SourceLocation) SourceSpan {
	return SourceSpan{Start: loc, End: loc}
}

// Merge returns the smallest span covering both s and other.
func (s SourceSpan) Merge(other SourceSpan) SourceSpan {
	merged := s
	if other.Start.Line < s.Start.Line ||
		(other.Start.Line == s.Start.Line && other.Start.Column < s.Start.Column) {
		merged.Start = other.Start
	}
	if other.End.Line > s.End.Line ||
		(other.End.Line == s.End.Line && other.End.Column > s.End.Column) {
		merged.End = other.End
	}
	return merged
}

// String implements fmt.Stringer.
func (s SourceSpan) String() string {
	return s.Start.String()
}
