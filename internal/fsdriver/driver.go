package fsdriver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mymy770/Clara/internal/logging"
)

// Sentinel errors for filesystem operations. Callers discriminate with errors.Is.
var (
	// ErrPathEscape indicates a path that resolves outside the confined root.
	ErrPathEscape = errors.New("path escapes confined root")
	// ErrNotFound indicates a missing file or directory.
	ErrNotFound = errors.New("path not found")
	// ErrAlreadyExists indicates a conflicting existing path when overwrite is disabled.
	ErrAlreadyExists = errors.New("path already exists")
)

// Entry describes a single directory entry, with its path relative to the driver root.
type Entry struct {
	Path     string  `json:"path"`
	IsDir    bool    `json:"is_dir"`
	Size     int64   `json:"size,omitempty"`
	Modified float64 `json:"modified,omitempty"`
}

// Stat describes the state of a path. A missing path is reported with
// Exists=false rather than an error.
type Stat struct {
	Exists   bool    `json:"exists"`
	IsDir    bool    `json:"is_dir"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
}

// SearchHit is a single text-search match: the file (relative to root) and a
// short snippet around the first occurrence.
type SearchHit struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

const snippetRadius = 60

// Driver provides filesystem access confined to a root directory fixed at
// construction. Every operation resolves its path through Resolve, so nothing
// outside the root is ever touched.
type Driver struct {
	root   string
	logger *logging.Logger
}

// New creates a Driver rooted at the given directory. The directory is
// created if absent and canonicalized so later containment checks compare
// like with like.
func New(root string) (*Driver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root %q: %w", abs, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalize root %q: %w", abs, err)
	}

	logger := logging.Get()
	logger.Info("Filesystem driver initialized", "root", canonical)

	return &Driver{
		root:   canonical,
		logger: logger,
	}, nil
}

// Root returns the canonical root directory.
func (d *Driver) Root() string {
	return d.root
}

// Resolve joins the root with a relative path, canonicalizes the result and
// fails with ErrPathEscape if it is not the root or a descendant of it.
// The empty path resolves to the root itself.
func (d *Driver) Resolve(rel string) (string, error) {
	var candidate string
	if filepath.IsAbs(rel) {
		candidate = filepath.Clean(rel)
	} else {
		candidate = filepath.Join(d.root, rel)
	}

	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", err
	}

	if resolved != d.root && !strings.HasPrefix(resolved, d.root+string(filepath.Separator)) {
		d.logger.Warn("Blocked path escaping root", "path", rel)
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return resolved, nil
}

// canonicalize resolves symlinks on the longest existing prefix of the path
// and re-joins the non-existing remainder, so containment is checked against
// the real location even for paths that are about to be created.
func canonicalize(path string) (string, error) {
	existing := path
	var tail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", path, err)
	}
	parts := append([]string{resolved}, tail...)
	return filepath.Clean(filepath.Join(parts...)), nil
}

// ReadText reads a file and returns its content as a string.
func (d *Driver) ReadText(rel string) (string, error) {
	b, err := d.ReadBytes(rel)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a file and returns its raw content.
func (d *Driver) ReadBytes(rel string) ([]byte, error) {
	full, err := d.Resolve(rel)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("read %q: %w", rel, err)
	}
	d.logger.Debug("File read", "path", rel, "bytes", len(b))
	return b, nil
}

// WriteText writes string content to a file, creating parent directories as
// needed. With overwrite disabled an existing target fails with
// ErrAlreadyExists.
func (d *Driver) WriteText(rel, content string, overwrite bool) error {
	return d.WriteBytes(rel, []byte(content), overwrite)
}

// WriteBytes writes raw content to a file. The write goes through a sibling
// temp file and a rename, so readers never observe a partial file.
func (d *Driver) WriteBytes(rel string, content []byte, overwrite bool) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Lstat(full); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, rel)
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent for %q: %w", rel, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", rel, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %q: %w", rel, err)
	}
	d.logger.Debug("File written", "path", rel, "bytes", len(content))
	return nil
}

// AppendText appends string content to a file, creating the file and its
// parent directories if absent.
func (d *Driver) AppendText(rel, content string) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent for %q: %w", rel, err)
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append %q: %w", rel, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("append %q: %w", rel, err)
	}
	d.logger.Debug("Content appended", "path", rel, "bytes", len(content))
	return nil
}

// ListDir lists a directory, reporting paths relative to the root. A missing
// directory yields an empty list, not an error.
func (d *Driver) ListDir(rel string) ([]Entry, error) {
	full, err := d.Resolve(rel)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("list %q: %w", rel, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		relPath, err := filepath.Rel(d.root, filepath.Join(full, de.Name()))
		if err != nil {
			continue
		}
		entry := Entry{Path: relPath, IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil && !de.IsDir() {
			entry.Size = info.Size()
			entry.Modified = float64(info.ModTime().UnixNano()) / 1e9
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// MakeDir creates a directory (and parents). With existOk disabled an
// existing directory fails with ErrAlreadyExists.
func (d *Driver) MakeDir(rel string, existOk bool) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if !existOk {
		if _, err := os.Lstat(full); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, rel)
		}
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("make dir %q: %w", rel, err)
	}
	d.logger.Debug("Directory created", "path", rel)
	return nil
}

// MovePath moves or renames a file or directory, creating destination parent
// directories. An existing destination fails with ErrAlreadyExists unless
// overwrite is set.
func (d *Driver) MovePath(src, dst string, overwrite bool) error {
	fullSrc, err := d.Resolve(src)
	if err != nil {
		return err
	}
	fullDst, err := d.Resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(fullSrc); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, src)
		}
		return fmt.Errorf("move %q: %w", src, err)
	}
	if _, err := os.Lstat(fullDst); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, dst)
		}
		if err := os.RemoveAll(fullDst); err != nil {
			return fmt.Errorf("move %q: %w", dst, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return fmt.Errorf("create parent for %q: %w", dst, err)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return fmt.Errorf("move %q to %q: %w", src, dst, err)
	}
	d.logger.Debug("Path moved", "src", src, "dst", dst)
	return nil
}

// DeletePath removes a file or directory tree. Deleting a missing path is a
// no-op.
func (d *Driver) DeletePath(rel string) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if full == d.root {
		return fmt.Errorf("%w: refusing to delete root", ErrPathEscape)
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("delete %q: %w", rel, err)
	}
	d.logger.Debug("Path deleted", "path", rel)
	return nil
}

// StatPath reports the state of a path. It never fails for a missing path.
func (d *Driver) StatPath(rel string) (Stat, error) {
	full, err := d.Resolve(rel)
	if err != nil {
		return Stat{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return Stat{Exists: false}, nil
		}
		return Stat{}, fmt.Errorf("stat %q: %w", rel, err)
	}
	return Stat{
		Exists:   true,
		IsDir:    info.IsDir(),
		Size:     info.Size(),
		Modified: float64(info.ModTime().UnixNano()) / 1e9,
	}, nil
}

// SearchText recursively searches files under startRel for a case-insensitive
// substring. Binary or undecodable files are skipped. Results follow
// traversal order and stop once maxResults hits are collected.
func (d *Driver) SearchText(query, startRel string, maxResults int, extensions []string) ([]SearchHit, error) {
	if maxResults <= 0 {
		maxResults = 100
	}
	start, err := d.Resolve(startRel)
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = true
	}

	needle := strings.ToLower(query)
	hits := make([]SearchHit, 0)

	err = filepath.WalkDir(start, func(path string, de os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if len(hits) >= maxResults {
			return filepath.SkipAll
		}
		if de.IsDir() {
			return nil
		}
		if len(extSet) > 0 && !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil || !utf8.Valid(content) {
			return nil
		}
		text := string(content)
		idx := strings.Index(strings.ToLower(text), needle)
		if idx < 0 {
			return nil
		}

		relPath, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}
		hits = append(hits, SearchHit{Path: relPath, Snippet: snippet(text, idx, len(query))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search under %q: %w", startRel, err)
	}

	d.logger.Debug("Text search completed", "query", query, "hits", len(hits))
	return hits, nil
}

// snippet extracts a fixed-radius window around a match with newlines
// flattened to spaces. The window edges are widened to rune boundaries so a
// multi-byte rune is never cut in half.
func snippet(text string, idx, matchLen int) string {
	lo := idx - snippetRadius
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	hi := idx + matchLen + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	window := text[lo:hi]
	window = strings.ReplaceAll(window, "\n", " ")
	window = strings.ReplaceAll(window, "\r", " ")
	return strings.TrimSpace(window)
}
