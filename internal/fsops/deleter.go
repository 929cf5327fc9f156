package fsops

// Deleter abstracts filesystem delete operations so tests can prove which
// paths were (or were not) removed.
type Deleter interface {
	// Remove deletes a single file or an empty directory.
	Remove(path string) error
	// RemoveAll deletes path and everything beneath it. A missing path is not an error.
	RemoveAll(path string) error
}
