package fsops

import "sync"

// FakeDeleter implements Deleter for testing.
// It records every call and returns the error configured for that path, if any.
type FakeDeleter struct {
	mu    sync.Mutex
	Calls []string
	Errs  map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	return f.record("rm:", path)
}

func (f *FakeDeleter) RemoveAll(path string) error {
	return f.record("rmall:", path)
}

func (f *FakeDeleter) record(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op+path)
	return f.Errs[path]
}

// Count returns the number of recorded calls.
func (f *FakeDeleter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
