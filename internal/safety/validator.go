package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrHoldsProtected = errors.New("contains a protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrRootTarget     = errors.New("refusing to delete the scan root")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator enforces the safety contract for all delete operations
type Validator struct {
	AllowedRoots   []string
	ProtectedPaths []string

	// guarded holds the operator's protected paths. Unlike the system
	// defaults, their ancestors are refused as well.
	guarded []string

	// resolvedRoots holds AllowedRoots with symlinks evaluated, so a root
	// reached through a symlinked temp dir still contains its own children.
	resolvedRoots []string
}

// NewValidator creates a validator with allowed roots and optional additional protected paths
func NewValidator(allowed []string, extraProtected []string) *Validator {
	roots := normalizeRoots(allowed)
	extra := normalizeRoots(extraProtected)
	return &Validator{
		AllowedRoots:   roots,
		ProtectedPaths: defaultProtected(extra),
		guarded:        extra,
		resolvedRoots:  resolveRoots(roots),
	}
}

// ValidateDeleteTarget authorizes deletion of a path found by scanning.
// The path must lie strictly inside one of the allowed roots.
func (v *Validator) ValidateDeleteTarget(path string) error {
	p, err := v.validateCommon(path)
	if err != nil {
		return err
	}

	for _, r := range v.AllowedRoots {
		if p == r {
			return ErrRootTarget
		}
	}
	if !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}

	escaped, err := v.parentEscapes(p)
	if err != nil {
		// The actual delete reports a missing parent on its own.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}
	return nil
}

// ValidateExplicitTarget authorizes deletion of a path the operator listed by
// hand. Those may live anywhere, so only the protected-path rules apply.
func (v *Validator) ValidateExplicitTarget(path string) error {
	_, err := v.validateCommon(path)
	return err
}

func (v *Validator) validateCommon(path string) (string, error) {
	if DetectTraversal(path) {
		return "", ErrTraversal
	}
	p, err := NormalizePath(path)
	if err != nil {
		return "", err
	}
	if IsProtectedPath(p, v.ProtectedPaths) {
		return "", ErrProtectedPath
	}
	if ContainsProtectedPath(p, v.guarded) {
		return "", ErrHoldsProtected
	}
	return p, nil
}

// parentEscapes resolves the directory holding p. Deleting a symlink only
// touches its parent, so the link target itself is irrelevant.
func (v *Validator) parentEscapes(p string) (bool, error) {
	escaped, err := DetectSymlinkEscape(filepath.Dir(p), v.resolvedRoots)
	if err != nil {
		return false, err
	}
	return escaped, nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves symlinks and checks if resolved path escapes allowed roots
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(cleanAbs)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	if !IsWithinAllowedRoots(filepath.Clean(resolvedAbs), allowedRoots) {
		return true, nil
	}
	return false, nil
}

// IsProtectedPath checks if path matches protected system paths
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if p == prot || hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// ContainsProtectedPath reports whether a protected path lies strictly
// beneath path, so removing path recursively would take it too.
func ContainsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if prot == string(os.PathSeparator) || prot == p {
			continue
		}
		if hasPathPrefix(prot, p) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return path == prefix
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// normalizeRoots converts slice of roots to absolute, cleaned paths
func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

func resolveRoots(roots []string) []string {
	out := make([]string, 0, len(roots)*2)
	for _, r := range roots {
		out = append(out, r)
		if resolved, err := filepath.EvalSymlinks(r); err == nil && resolved != r {
			out = append(out, filepath.Clean(resolved))
		}
	}
	return out
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/proc",
		"/sys",
		"/dev",
	}
	return append(base, extra...)
}
