package discovery

import "time"

// StdinPath is the argument that names standard input
const StdinPath = "-"

// Script represents a SQL script named on the command line or found while
// walking a directory
type Script struct {
	Path         string    // Absolute path, or StdinPath
	RelativePath string    // Path relative to the argument it was found under
	Source       Source    // File or stdin
	ModTime      time.Time // Last modification time, zero for stdin
}

// Source indicates where a script is read from
type Source int

const (
	SourceFile  Source = iota // Regular file
	SourceStdin               // Standard input
)

// String returns a string representation of Source
func (s Source) String() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceStdin:
		return "stdin"
	default:
		return "unknown"
	}
}

// Name returns the display name of the script
func (s Script) Name() string {
	if s.Source == SourceStdin {
		return "<stdin>"
	}
	return s.RelativePath
}
