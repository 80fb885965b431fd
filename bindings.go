// bindings.go
//
// Frontend-facing API. Every exported method here is callable from the
// desktop webview (Wails bindings) and from the WebSocket RPC router.
package main

import (
	"errors"
	"path/filepath"

	"codepad/internal/assist"
	"codepad/internal/config"
	"codepad/internal/eventhub"
	"codepad/internal/markdown"
	"codepad/internal/registry"
	"codepad/internal/snapshot"
	"codepad/internal/storage"
	"codepad/internal/tree"
	"codepad/internal/xerrors"
)

// WorkspaceInfo describes the attached folder to the frontend
type WorkspaceInfo struct {
	HasFolder  bool     `json:"has_folder"`
	FolderName string   `json:"folder_name,omitempty"`
	RootID     string   `json:"root_id,omitempty"`
	GitBranch  string   `json:"git_branch,omitempty"`
	Expanded   []string `json:"expanded,omitempty"`
}

// ---- Workspace ----

// OpenFolder prompts for a workspace directory and attaches it. A
// dismissed picker returns the CANCELLED error and changes nothing.
func (a *App) OpenFolder() (WorkspaceInfo, error) {
	h, err := a.adapter.PickDirectory(a.ctx)
	if err != nil {
		return WorkspaceInfo{}, err
	}

	// Expansion state survives only when the same folder name comes back
	var restored []string
	if rec := a.folderState.Load(); rec != nil && rec.HasFolder && rec.FolderName == h.Name {
		restored = rec.ExpandedPaths
	}

	a.attachWorkspace(h, restored)
	return a.Workspace(), nil
}

// CloseFolder detaches the workspace. Open tabs survive as virtual
// documents; their handles stay valid until storage invalidates them.
func (a *App) CloseFolder() {
	a.detachWorkspace()
}

// Workspace reports the current folder attachment
func (a *App) Workspace() WorkspaceInfo {
	a.mu.RLock()
	h := a.workspace
	repo := a.gitRepo
	a.mu.RUnlock()

	if h.ID == "" {
		return WorkspaceInfo{}
	}
	info := WorkspaceInfo{
		HasFolder:  true,
		FolderName: h.Name,
		RootID:     h.ID,
		Expanded:   a.navigator.ExpandedPaths(),
	}
	if repo != nil {
		info.GitBranch = repo.Branch()
	}
	return info
}

// StorageSupported reports whether the local filesystem capability is
// present. When false the frontend offers uploads and forced downloads
// only.
func (a *App) StorageSupported() bool {
	return a.adapter.Supported()
}

// ---- Tree ----

// ExpandDirectory lists a directory and marks it expanded
func (a *App) ExpandDirectory(dirID, path string) ([]tree.Node, error) {
	nodes, err := a.navigator.Expand(a.ctx, dirID, path)
	if err != nil {
		return nil, err
	}
	a.watchExpanded(path)
	return nodes, nil
}

// CollapseDirectory unmarks an expanded directory
func (a *App) CollapseDirectory(path string) {
	a.navigator.Collapse(path)
}

// RefreshDirectory re-lists a directory, bypassing the session cache
func (a *App) RefreshDirectory(dirID, path string) ([]tree.Node, error) {
	return a.navigator.Refresh(a.ctx, dirID, path)
}

// ---- File operations ----

// CreateFile creates an empty file under a directory and re-lists it
func (a *App) CreateFile(dirID, dirPath, name string) (storage.Handle, error) {
	h, err := a.adapter.CreateFile(a.ctx, dirID, name, "")
	if err != nil {
		return storage.Handle{}, err
	}
	a.invalidateAndNotify(dirPath, "create")
	return h, nil
}

// CreateDirectory creates a subdirectory under a directory
func (a *App) CreateDirectory(dirID, dirPath, name string) (storage.Handle, error) {
	h, err := a.adapter.CreateDirectory(a.ctx, dirID, name)
	if err != nil {
		return storage.Handle{}, err
	}
	a.invalidateAndNotify(dirPath, "create")
	return h, nil
}

// DeleteEntry removes a file or directory. Tabs bound to any handle the
// delete invalidates are orphaned to virtual documents BEFORE success is
// reported, so no tab ever points at a dead handle.
func (a *App) DeleteEntry(dirID, dirPath, name string) error {
	dropped, err := a.adapter.DeleteEntry(a.ctx, dirID, name)
	if err != nil {
		return err
	}
	for _, handleID := range dropped {
		a.docs.OrphanHandle(handleID)
	}
	a.invalidateAndNotify(dirPath, "delete")
	return nil
}

// RenameEntry renames a file or directory under dirID. File renames are
// copy-then-delete and directory renames migrate the whole subtree; a
// partial failure surfaces as CONFLICT and the caller re-lists to
// reconcile. Tabs showing the renamed file are rebound to the new
// handle; tabs under a renamed directory are orphaned to virtual
// documents.
func (a *App) RenameEntry(dirID, dirPath, oldName, newName string, isDir bool) (storage.Handle, error) {
	if oldName == newName {
		return storage.Handle{}, nil // same-name rename is a no-op
	}

	// Handles the rename will invalidate, captured before it runs
	var staleIDs []string
	if dir, ok := a.adapter.Handles().Get(dirID); ok {
		staleIDs = a.adapter.Handles().IDsUnder(filepath.Join(dir.Path, oldName))
	}

	var (
		newHandle storage.Handle
		err       error
	)
	if isDir {
		newHandle, err = a.adapter.RenameDirectory(a.ctx, dirID, oldName, newName)
	} else {
		newHandle, err = a.adapter.RenameFile(a.ctx, dirID, oldName, newName)
	}
	// A CONFLICT still carries a usable new handle; rebind and re-list
	if err != nil && !xerrors.Is(err, xerrors.CodeConflict) {
		return storage.Handle{}, err
	}

	for _, staleID := range staleIDs {
		for _, docID := range a.docs.OrphanHandle(staleID) {
			if !isDir {
				// The tab tracked the renamed file itself; follow it
				a.docs.Rename(docID, newName)
				a.docs.BindHandle(docID, newHandle.ID)
			}
		}
	}
	a.invalidateAndNotify(dirPath, "rename")
	return newHandle, err
}

// OpenFileFromTree reads a listed file and opens it in a tab. An already
// open handle just activates its tab.
func (a *App) OpenFileFromTree(fileID, name string) (registry.DocumentID, error) {
	for _, doc := range a.docs.List() {
		if doc.HandleID == fileID {
			a.activateFlushed(doc.ID)
			return doc.ID, nil
		}
	}

	content, err := a.adapter.ReadFile(a.ctx, fileID)
	if err != nil {
		return 0, err
	}
	return a.docs.Open(name, content, "", fileID), nil
}

// OpenFiles prompts for files and opens each in a tab
func (a *App) OpenFiles() ([]registry.DocumentID, error) {
	picks, err := a.adapter.PickFilesToOpen(a.ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]registry.DocumentID, 0, len(picks))
	for _, pick := range picks {
		ids = append(ids, a.docs.Open(pick.Name, pick.Content, "", pick.HandleID))
	}
	return ids, nil
}

// ReceiveUpload opens frontend-supplied file content as a bound-less
// tab. This is the handle-less session's substitute for OpenFiles.
func (a *App) ReceiveUpload(name, content string) registry.DocumentID {
	return a.docs.Open(name, content, "", "")
}

// ---- Tabs ----

// NewTab opens an empty virtual document
func (a *App) NewTab(filename string) registry.DocumentID {
	return a.docs.Open(filename, "", "", "")
}

// ListTabs returns every open document in tab order
func (a *App) ListTabs() []registry.Document {
	return a.docs.List()
}

// ActiveTab returns the active document, zero-valued when none is open
func (a *App) ActiveTab() registry.Document {
	doc, _ := a.docs.Active()
	return doc
}

// ActivateTab switches tabs. liveContent is the outgoing editor buffer;
// it is flushed into the outgoing document under the same lock so no
// keystroke is lost across the switch.
func (a *App) ActivateTab(id int64, liveContent string) {
	a.docs.Activate(registry.DocumentID(id), liveContent)
}

// activateFlushed activates without new live content (tree-driven focus)
func (a *App) activateFlushed(id registry.DocumentID) {
	if doc, ok := a.docs.Active(); ok {
		a.docs.Activate(id, doc.Content)
	} else {
		a.docs.Activate(id, "")
	}
}

// UpdateContent applies an editor change notification and arms the
// autosave debounce
func (a *App) UpdateContent(id int64, content string) {
	docID := registry.DocumentID(id)
	a.docs.UpdateContent(docID, content)
	a.autosaver.NoteEdit(docID)
}

// CloseTab closes a document. A dirty document refuses unless force is
// set; the frontend confirms with the user and retries.
func (a *App) CloseTab(id int64, force bool) error {
	err := a.docs.Close(registry.DocumentID(id), force)
	if errors.Is(err, registry.ErrUnsavedChanges) {
		return &xerrors.Error{Code: xerrors.CodeConflict, Message: "unsaved changes"}
	}
	return err
}

// RenameTab renames a document. Same name is a no-op; otherwise the
// handle binding is dropped, the language re-inferred, and any explicit
// language pin cleared.
func (a *App) RenameTab(id int64, newName string) {
	a.docs.Rename(registry.DocumentID(id), newName)
}

// SetTabLanguage pins an explicit language on a document
func (a *App) SetTabLanguage(id int64, language string) {
	a.docs.SetLanguage(registry.DocumentID(id), language)
}

// ---- Saving ----

// SaveAll writes every open document to disk immediately, superseding
// any pending debounced sync
func (a *App) SaveAll() error {
	return a.autosaver.SaveAll(a.ctx)
}

// SaveAs writes a document to a user-chosen destination. In fallback
// mode the text lands in the downloads directory and the tab stays
// unbound.
func (a *App) SaveAs(id int64, suggestedName string) (storage.SaveResult, error) {
	doc, ok := a.docs.Get(registry.DocumentID(id))
	if !ok {
		return storage.SaveResult{}, xerrors.NewNotFound("document")
	}

	result, err := a.adapter.SaveAs(a.ctx, doc.Content, suggestedName)
	if err != nil {
		return storage.SaveResult{}, err
	}
	if result.HandleID != "" {
		a.docs.BindHandle(doc.ID, result.HandleID)
		a.docs.MarkSaved(doc.ID, doc.Content)
	}
	return result, nil
}

// ---- Crash recovery ----

// RecoverSnapshot returns the crash-recovery snapshot of the last active
// document, nil when none exists
func (a *App) RecoverSnapshot() (*snapshot.Snapshot, error) {
	return a.snapshots.Load("active")
}

// DiscardSnapshot drops the crash-recovery snapshot
func (a *App) DiscardSnapshot() {
	a.snapshots.Clear("active")
}

// ---- Markdown ----

// RenderMarkdown converts markdown text to preview HTML
func (a *App) RenderMarkdown(source string) string {
	return markdown.Render(source)
}

// ---- Assist ----

// SetAssistKey stores the AI-assist API key
func (a *App) SetAssistKey(key string) error {
	return a.assist.SetAPIKey(key)
}

// HasAssistKey reports whether an assist key is configured
func (a *App) HasAssistKey() (bool, error) {
	return a.assist.HasAPIKey()
}

// ClearAssistKey removes the stored assist key
func (a *App) ClearAssistKey() error {
	return a.assist.ClearAPIKey()
}

// RunAssist fires an assist action on the given code. The result arrives
// as an assist:complete or assist:error event.
func (a *App) RunAssist(action, code string) error {
	return a.assist.Run(a.ctx, assist.Action(action), code)
}

// ---- Terminal ----

// OpenTerminal starts a shell session rooted in the workspace folder
// (home when detached) and returns its id
func (a *App) OpenTerminal(rows, cols int) (string, error) {
	a.mu.RLock()
	cwd := a.workspace.Path
	a.mu.RUnlock()
	if cwd == "" {
		cwd = a.config.HomeDir
	}
	return a.terminals.Open(cwd, rows, cols)
}

// WriteTerminal sends keystrokes to a terminal session
func (a *App) WriteTerminal(id, data string) error {
	return a.terminals.Write(id, data)
}

// ResizeTerminal changes a terminal session's dimensions
func (a *App) ResizeTerminal(id string, rows, cols int) error {
	return a.terminals.Resize(id, rows, cols)
}

// CloseTerminal ends a terminal session
func (a *App) CloseTerminal(id string) error {
	return a.terminals.Close(id)
}

// ListTerminals returns the active terminal session ids
func (a *App) ListTerminals() []string {
	return a.terminals.List()
}

// ---- Settings ----

// GetSettings returns the effective user settings
func (a *App) GetSettings() config.Settings {
	return a.config.Settings
}

// invalidateAndNotify drops the tree cache for a mutated subtree and
// broadcasts the change
func (a *App) invalidateAndNotify(path, reason string) {
	a.navigator.Invalidate(path)
	a.eventHub.EmitTreeChanged(eventhub.TreeChangedEvent{Path: path, Reason: reason})
}
