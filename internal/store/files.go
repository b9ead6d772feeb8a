package store

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FileSet names the files of one store: the active file and its numbered
// backups "<name>~<i><ext>", 1 being the most recently rotated out.
type FileSet struct {
	folder string
	name   string
	ext    string
}

// NewFileSet returns the file set for filename inside folder.
func NewFileSet(folder, filename string) FileSet {
	ext := filepath.Ext(filename)
	return FileSet{
		folder: folder,
		name:   strings.TrimSuffix(filename, ext),
		ext:    ext,
	}
}

// Folder returns the folder holding the set.
func (f FileSet) Folder() string {
	return f.folder
}

// Active returns the path of the active file.
func (f FileSet) Active() string {
	return filepath.Join(f.folder, f.name+f.ext)
}

// Backup returns the path of backup i. Index 0 is the active file.
func (f FileSet) Backup(i int) string {
	if i <= 0 {
		return f.Active()
	}
	return filepath.Join(f.folder, f.name+"~"+strconv.Itoa(i)+f.ext)
}

// Existing returns the paths present on disk in read order: the active file
// if it exists, then every backup in increasing index order. Gaps left by an
// interrupted rotation are skipped rather than ending the list.
func (f FileSet) Existing() []string {
	var paths []string
	if fileExists(f.Active()) {
		paths = append(paths, f.Active())
	}

	entries, err := os.ReadDir(f.folder)
	if err != nil {
		return paths
	}
	prefix := f.name + "~"
	var indices []int
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || len(name) <= len(prefix)+len(f.ext) ||
			!strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, f.ext) {
			continue
		}
		i, err := strconv.Atoi(name[len(prefix) : len(name)-len(f.ext)])
		// Only the canonical spelling counts, so "~01" or "~+1" are ignored.
		if err != nil || i < 1 || filepath.Base(f.Backup(i)) != name {
			continue
		}
		indices = append(indices, i)
	}
	slices.Sort(indices)
	for _, i := range indices {
		paths = append(paths, f.Backup(i))
	}
	return paths
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
