package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single source file.
// Content is kept so annotation scanning and diagnostic rendering can quote
// lines without touching the disk again.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// NumLines returns the number of lines in the file (1-based upper bound).
func (f *File) NumLines() uint32 {
	n := uint32(len(f.LineIdx)) + 1
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] == '\n' {
		n--
	}
	return n
}
