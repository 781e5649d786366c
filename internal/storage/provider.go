// Package storage defines the corpus file-system abstraction.
package storage

// FileInfo identifies one corpus file by relative path and content checksum.
type FileInfo struct {
	Path     string
	Checksum string
}

// Provider is the read-only interface to a document corpus. The validator
// never mutates corpus files.
type Provider interface {
	// List returns every Markdown file under the corpus root in lexical
	// path order, with a content checksum for each.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the corpus root).
	Read(path string) ([]byte, error)
}
