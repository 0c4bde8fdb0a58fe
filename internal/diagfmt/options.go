// Package diagfmt renders a diag.Bag for a human (Pretty) or for tooling
// (JSON), grounded on the source positions internal/source.FileSet already
// resolves for every diagnostic's Span.
package diagfmt

// PathMode controls how a diagnostic's file path is displayed.
type PathMode uint8

const (
	// PathModeAuto lets the FileSet pick relative-to-base or absolute.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always prints an absolute path.
	PathModeAbsolute
	// PathModeRelative prints a path relative to the FileSet's base dir.
	PathModeRelative
	// PathModeBasename prints just the file name.
	PathModeBasename
)

func (m PathMode) formatMode() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// PrettyOpts configures Pretty's rendering.
type PrettyOpts struct {
	// Color enables ANSI coloring of severities and carets.
	Color bool
	// Context is how many source lines to print above and below the
	// diagnostic's primary line.
	Context int
	PathMode PathMode
	// ShowNotes prints each diagnostic's Notes under its primary message.
	ShowNotes bool
	// ShowFixes prints each diagnostic's suggested Fixes.
	ShowFixes bool
}

// JSONOpts configures JSON's output shape.
type JSONOpts struct {
	// IncludePositions adds resolved line/column numbers alongside byte
	// offsets.
	IncludePositions bool
	PathMode         PathMode
	IncludeNotes     bool
	IncludeFixes     bool
}
