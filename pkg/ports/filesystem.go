package ports

// FileSystem is the storage behind the file transport, the image source and
// the summary writer.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces path with data, creating missing parent directories.
	// Readers never observe a partially written file.
	WriteFile(path string, data []byte) error

	MkdirAll(path string) error

	// Exists reports whether path names a file or directory.
	Exists(path string) (bool, error)

	// ListDir returns the sorted names of the regular, non-hidden files in dir.
	// It fails when dir is not a directory.
	ListDir(dir string) ([]string, error)
}
