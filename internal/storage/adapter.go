// internal/storage/adapter.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codepad/internal/xerrors"
)

// Entry is one child of a listed directory
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"` // slash-joined ancestor names within the workspace
	Kind     Kind   `json:"kind"`
	HandleID string `json:"handle_id"`
}

// FilePick is one file chosen through the open-files dialog
type FilePick struct {
	HandleID string `json:"handle_id"`
	Name     string `json:"name"`
	Content  string `json:"content"`
}

// SaveResult describes where SaveAs put the text
type SaveResult struct {
	HandleID string `json:"handle_id,omitempty"` // empty in fallback mode
	Path     string `json:"path"`
	Fallback bool   `json:"fallback"`
}

// Adapter wraps the host filesystem behind the handle table. All mutating
// operations on one directory are serialized through a per-directory lock,
// so overlapping context-menu operations cannot race each other.
type Adapter struct {
	picker    Picker
	guard     PermissionGuard
	handles   *HandleTable
	fallback  string // forced-download directory for handle-less sessions
	supported bool

	mu       sync.Mutex
	dirLocks map[string]*sync.Mutex
}

// New creates an Adapter. A nil picker (or a NoPicker) marks the local
// filesystem capability as absent: the session runs handle-less and
// directory operations fail UNSUPPORTED up front.
func New(picker Picker, guard PermissionGuard, fallbackDir string) *Adapter {
	supported := true
	if picker == nil {
		picker = NoPicker{}
	}
	if _, absent := picker.(NoPicker); absent {
		supported = false
	}
	if guard == nil {
		guard = allowAllGuard{}
	}

	return &Adapter{
		picker:    picker,
		guard:     guard,
		handles:   NewHandleTable(),
		fallback:  fallbackDir,
		supported: supported,
		dirLocks:  make(map[string]*sync.Mutex),
	}
}

// Supported reports whether the local filesystem capability is present
func (a *Adapter) Supported() bool {
	return a.supported
}

// Handles exposes the handle table for components that resolve ids
func (a *Adapter) Handles() *HandleTable {
	return a.handles
}

// PickDirectory prompts for a workspace directory and mints its handle
func (a *Adapter) PickDirectory(ctx context.Context) (Handle, error) {
	if !a.supported {
		return Handle{}, xerrors.NewUnsupported("pickDirectory")
	}

	path, err := a.picker.PickDirectory(ctx)
	if err != nil {
		return Handle{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Handle{}, classify(err, path)
	}
	if !info.IsDir() {
		return Handle{}, xerrors.NewConflict(fmt.Sprintf("%s is not a directory", path), nil)
	}

	return a.handles.Mint(KindDirectory, filepath.Base(path), path), nil
}

// ListChildren lists the entries of a directory handle. pathPrefix is the
// slash-joined tree path of the directory and prefixes each child's Path.
func (a *Adapter) ListChildren(ctx context.Context, dirID, pathPrefix string) ([]Entry, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(dir.Path)
	if err != nil {
		return nil, classify(err, dir.Name)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		kind := KindFile
		if de.IsDir() {
			kind = KindDirectory
		}
		childPath := filepath.Join(dir.Path, de.Name())
		h := a.handles.Mint(kind, de.Name(), childPath)

		treePath := de.Name()
		if pathPrefix != "" {
			treePath = pathPrefix + "/" + de.Name()
		}
		entries = append(entries, Entry{
			Name:     de.Name(),
			Path:     treePath,
			Kind:     kind,
			HandleID: h.ID,
		})
	}
	return entries, nil
}

// ReadFile returns the text content of a file handle
func (a *Adapter) ReadFile(ctx context.Context, fileID string) (string, error) {
	file, err := a.file(fileID)
	if err != nil {
		return "", err
	}
	if err := a.ensurePermission(file, false); err != nil {
		return "", err
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return "", classify(err, file.Name)
	}
	return string(data), nil
}

// WriteFile persists text through a file handle, verbatim
func (a *Adapter) WriteFile(ctx context.Context, fileID, text string) error {
	file, err := a.file(fileID)
	if err != nil {
		return err
	}
	if err := a.ensurePermission(file, true); err != nil {
		return err
	}

	if err := os.WriteFile(file.Path, []byte(text), 0644); err != nil {
		return a.retryDenied(err, file, func() error {
			return os.WriteFile(file.Path, []byte(text), 0644)
		})
	}
	return nil
}

// CreateFile creates (or truncates) name under the directory and returns
// the new file handle
func (a *Adapter) CreateFile(ctx context.Context, dirID, name, initialText string) (Handle, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return Handle{}, err
	}
	if err := a.ensurePermission(dir, true); err != nil {
		return Handle{}, err
	}

	unlock := a.lockDir(dirID)
	defer unlock()

	path := filepath.Join(dir.Path, name)
	if err := os.WriteFile(path, []byte(initialText), 0644); err != nil {
		return Handle{}, classify(err, name)
	}
	return a.handles.Mint(KindFile, name, path), nil
}

// CreateDirectory creates name under the directory and returns its handle
func (a *Adapter) CreateDirectory(ctx context.Context, dirID, name string) (Handle, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return Handle{}, err
	}
	if err := a.ensurePermission(dir, true); err != nil {
		return Handle{}, err
	}

	unlock := a.lockDir(dirID)
	defer unlock()

	path := filepath.Join(dir.Path, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return Handle{}, classify(err, name)
	}
	return a.handles.Mint(KindDirectory, name, path), nil
}

// DeleteEntry removes name under the directory, recursively for
// directories. It returns the ids of every handle invalidated by the
// delete so the caller can orphan bound tabs before reporting success.
func (a *Adapter) DeleteEntry(ctx context.Context, dirID, name string) ([]string, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return nil, err
	}
	if err := a.ensurePermission(dir, true); err != nil {
		return nil, err
	}

	unlock := a.lockDir(dirID)
	defer unlock()

	path := filepath.Join(dir.Path, name)
	if _, err := os.Stat(path); err != nil {
		return nil, classify(err, name)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, classify(err, name)
	}
	return a.handles.InvalidateUnder(path), nil
}

// RenameFile renames a file by copy-then-delete. The two steps are NOT
// atomic: a failure in between can leave both names present, and callers
// must re-list the directory to reconcile (last writer wins, the old name
// is stale).
func (a *Adapter) RenameFile(ctx context.Context, dirID, oldName, newName string) (Handle, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return Handle{}, err
	}
	if err := a.ensurePermission(dir, true); err != nil {
		return Handle{}, err
	}

	unlock := a.lockDir(dirID)
	defer unlock()

	oldPath := filepath.Join(dir.Path, oldName)
	newPath := filepath.Join(dir.Path, newName)

	data, err := os.ReadFile(oldPath)
	if err != nil {
		return Handle{}, classify(err, oldName)
	}

	// Step 1: create the new name
	if err := os.WriteFile(newPath, data, 0644); err != nil {
		return Handle{}, classify(err, newName)
	}
	newHandle := a.handles.Mint(KindFile, newName, newPath)

	// Step 2: delete the old name. On failure both names now exist; the
	// new handle is still valid and the caller reconciles by re-listing.
	if err := os.Remove(oldPath); err != nil {
		return newHandle, xerrors.NewConflict(
			fmt.Sprintf("renamed to %s but could not remove %s", newName, oldName), err)
	}
	a.handles.InvalidateUnder(oldPath)

	return newHandle, nil
}

// RenameDirectory renames a directory by creating the new name, migrating
// the entire subtree, then deleting the old name. Contents are never
// dropped.
func (a *Adapter) RenameDirectory(ctx context.Context, dirID, oldName, newName string) (Handle, error) {
	dir, err := a.directory(dirID)
	if err != nil {
		return Handle{}, err
	}
	if err := a.ensurePermission(dir, true); err != nil {
		return Handle{}, err
	}

	unlock := a.lockDir(dirID)
	defer unlock()

	oldPath := filepath.Join(dir.Path, oldName)
	newPath := filepath.Join(dir.Path, newName)

	info, err := os.Stat(oldPath)
	if err != nil {
		return Handle{}, classify(err, oldName)
	}
	if !info.IsDir() {
		return Handle{}, xerrors.NewConflict(fmt.Sprintf("%s is not a directory", oldName), nil)
	}

	if err := copyTree(oldPath, newPath); err != nil {
		return Handle{}, classify(err, newName)
	}
	newHandle := a.handles.Mint(KindDirectory, newName, newPath)

	if err := os.RemoveAll(oldPath); err != nil {
		return newHandle, xerrors.NewConflict(
			fmt.Sprintf("migrated to %s but could not remove %s", newName, oldName), err)
	}
	a.handles.InvalidateUnder(oldPath)

	return newHandle, nil
}

// PickFilesToOpen prompts for files and returns their contents with
// freshly minted handles
func (a *Adapter) PickFilesToOpen(ctx context.Context) ([]FilePick, error) {
	if !a.supported {
		// Handle-less sessions receive uploads directly from the frontend
		return nil, xerrors.NewUnsupported("pickFilesToOpen")
	}

	paths, err := a.picker.PickFiles(ctx)
	if err != nil {
		return nil, err
	}

	picks := make([]FilePick, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, classify(err, filepath.Base(path))
		}
		h := a.handles.Mint(KindFile, filepath.Base(path), path)
		picks = append(picks, FilePick{
			HandleID: h.ID,
			Name:     h.Name,
			Content:  string(data),
		})
	}
	return picks, nil
}

// SaveAs writes text to a user-chosen destination. In fallback mode the
// text lands in the downloads directory as a forced download, and no
// handle is minted: the session stays handle-less.
func (a *Adapter) SaveAs(ctx context.Context, text, suggestedName string) (SaveResult, error) {
	if !a.supported {
		if a.fallback == "" {
			return SaveResult{}, xerrors.NewUnsupported("saveAs")
		}
		if err := os.MkdirAll(a.fallback, 0755); err != nil {
			return SaveResult{}, classify(err, a.fallback)
		}
		path := filepath.Join(a.fallback, suggestedName)
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			return SaveResult{}, classify(err, suggestedName)
		}
		return SaveResult{Path: path, Fallback: true}, nil
	}

	path, err := a.picker.PickSaveTarget(ctx, suggestedName)
	if err != nil {
		return SaveResult{}, err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return SaveResult{}, classify(err, filepath.Base(path))
	}
	h := a.handles.Mint(KindFile, filepath.Base(path), path)
	return SaveResult{HandleID: h.ID, Path: path}, nil
}

// directory resolves a handle id that must be a directory
func (a *Adapter) directory(id string) (Handle, error) {
	h, ok := a.handles.Get(id)
	if !ok {
		return Handle{}, xerrors.NewNotFound("directory handle " + id)
	}
	switch h.Kind {
	case KindDirectory:
		return h, nil
	case KindFile:
		return Handle{}, xerrors.NewConflict(fmt.Sprintf("%s is a file, not a directory", h.Name), nil)
	}
	return Handle{}, xerrors.NewConflict("unknown handle kind", nil)
}

// file resolves a handle id that must be a file
func (a *Adapter) file(id string) (Handle, error) {
	h, ok := a.handles.Get(id)
	if !ok {
		return Handle{}, xerrors.NewNotFound("file handle " + id)
	}
	switch h.Kind {
	case KindFile:
		return h, nil
	case KindDirectory:
		return Handle{}, xerrors.NewConflict(fmt.Sprintf("%s is a directory, not a file", h.Name), nil)
	}
	return Handle{}, xerrors.NewConflict("unknown handle kind", nil)
}

// ensurePermission checks the grant and performs at most one interactive
// re-request before surfacing PERMISSION_DENIED.
func (a *Adapter) ensurePermission(h Handle, write bool) error {
	if a.guard.Query(h.Path, write) {
		return nil
	}
	if a.guard.Request(h.Path, write) {
		return nil
	}
	return xerrors.NewPermissionDenied(h.Name)
}

// retryDenied retries op once after an interactive re-request when the
// original failure was a permission error
func (a *Adapter) retryDenied(err error, h Handle, op func() error) error {
	if !os.IsPermission(err) {
		return classify(err, h.Name)
	}
	if !a.guard.Request(h.Path, true) {
		return xerrors.NewPermissionDenied(h.Name)
	}
	if retryErr := op(); retryErr != nil {
		return classify(retryErr, h.Name)
	}
	return nil
}

// lockDir serializes mutating operations per directory handle
func (a *Adapter) lockDir(dirID string) func() {
	a.mu.Lock()
	lock, ok := a.dirLocks[dirID]
	if !ok {
		lock = &sync.Mutex{}
		a.dirLocks[dirID] = lock
	}
	a.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// copyTree recursively copies a directory
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dstPath, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// classify maps host filesystem errors onto the adapter's error taxonomy
func classify(err error, target string) error {
	switch {
	case os.IsNotExist(err):
		return xerrors.NewNotFound(target)
	case os.IsPermission(err):
		return xerrors.NewPermissionDenied(target)
	default:
		return err
	}
}
