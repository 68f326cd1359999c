package loc

import (
	"io/fs"
	"os"
)

// FileSystem is the set of filesystem calls the scanner and counter make.
// [OSFileSystem] is the production implementation; tests substitute fakes to
// count reads or inject failures.
type FileSystem interface {
	// ReadDir lists a directory without following symbolic links in its entries.
	ReadDir(name string) ([]fs.DirEntry, error)
	// Stat returns file info, following symbolic links.
	Stat(name string) (fs.FileInfo, error)
	// ReadFile returns the full content of a file.
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem implements [FileSystem] on top of package os.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
