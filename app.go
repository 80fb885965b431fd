// app.go
package main

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"codepad/internal/assist"
	"codepad/internal/autosave"
	"codepad/internal/config"
	"codepad/internal/eventhub"
	"codepad/internal/folderstate"
	"codepad/internal/gitstatus"
	"codepad/internal/registry"
	"codepad/internal/snapshot"
	"codepad/internal/statestore"
	"codepad/internal/storage"
	"codepad/internal/terminal"
	"codepad/internal/tree"
	"codepad/internal/watcher"
)

// watcherDebounce coalesces external change bursts before the tree is
// told to re-list
const watcherDebounce = 200 * time.Millisecond

// App contains the core application state and managers
type App struct {
	ctx    context.Context
	mu     sync.RWMutex
	config *config.Config

	// newPicker builds the host dialog capability once a context exists.
	// Left nil (server mode) the session runs handle-less.
	newPicker func(ctx context.Context) storage.Picker

	kv          *statestore.Store
	folderState *folderstate.Cache
	eventHub    *eventhub.EventHub
	docs        *registry.Registry
	adapter     *storage.Adapter
	snapshots   *snapshot.Store
	autosaver   *autosave.Coordinator
	navigator   *tree.Navigator
	assist      *assist.Client
	terminals   *terminal.Manager

	// Per-workspace state, replaced on every folder open/detach
	workspace storage.Handle
	fsWatcher *watcher.WorkspaceWatcher
	gitRepo   *gitstatus.Repo
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts (Wails callback)
func (a *App) startup(ctx context.Context) {
	a.startupCommon(ctx)
}

// Startup is the exported version for the standalone server
func (a *App) Startup(ctx context.Context) {
	a.startupCommon(ctx)
}

func (a *App) startupCommon(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return
	}
	a.config = cfg

	kv, err := statestore.Open(cfg.StatePath)
	if err != nil {
		log.Printf("open state store: %v", err)
		return
	}
	a.kv = kv
	a.folderState = folderstate.New(kv)

	a.eventHub = eventhub.New(ctx)

	var picker storage.Picker
	if a.newPicker != nil {
		picker = a.newPicker(ctx)
	}
	a.adapter = storage.New(picker, nil, cfg.DownloadsDir)

	a.docs = registry.New(a.eventHub)
	a.snapshots = snapshot.NewStore(cfg.SnapshotDir, kv)
	a.autosaver = autosave.New(a.docs, a.adapter, a.snapshots, a.eventHub,
		cfg.Settings.SnapshotDebounce(), cfg.Settings.DiskSyncDebounce())
	a.navigator = tree.New(a.adapter, a.folderState)
	a.assist = assist.New(cfg.Settings.AssistEndpoint, kv, a.eventHub)
	a.terminals = terminal.NewManager(ctx, a.eventHub)
	a.terminals.SetShell(cfg.Settings.Shell)

	log.Println("codepad started")
}

// shutdown is called when the app is shutting down (Wails callback)
func (a *App) shutdown(ctx context.Context) {
	a.shutdownCommon(ctx)
}

// Shutdown is the exported version for the standalone server
func (a *App) Shutdown(ctx context.Context) {
	a.shutdownCommon(ctx)
}

func (a *App) shutdownCommon(ctx context.Context) {
	if a.autosaver != nil {
		a.autosaver.Flush(ctx)
		a.autosaver.Stop()
	}
	if a.terminals != nil {
		a.terminals.CloseAll()
	}
	a.dropWatcher()
	if a.kv != nil {
		a.kv.Close()
	}
	log.Println("codepad shutdown complete")
}

// SetEventHubBroadcaster installs the WebSocket broadcaster (server mode)
func (a *App) SetEventHubBroadcaster(b eventhub.Broadcaster) {
	if a.eventHub != nil {
		a.eventHub.SetBroadcaster(b)
	}
}

// attachWorkspace wires per-workspace state after a folder is opened
func (a *App) attachWorkspace(h storage.Handle, restoredExpanded []string) {
	a.mu.Lock()
	a.workspace = h
	a.mu.Unlock()

	a.navigator.SetRoot(h.ID, h.Name, restoredExpanded)
	a.autosaver.SetWorkspace(h.ID)

	// Adornment is optional; most scratch folders are not repositories
	if repo, err := gitstatus.Open(h.Path); err == nil {
		a.mu.Lock()
		a.gitRepo = repo
		a.mu.Unlock()
		a.navigator.SetStatusSource(repo)
	}

	a.startWatcher(h.Path)
	a.eventHub.EmitWorkspaceChanged(eventhub.WorkspaceChangedEvent{
		HasFolder:  true,
		FolderName: h.Name,
	})
}

// detachWorkspace tears per-workspace state down
func (a *App) detachWorkspace() {
	a.dropWatcher()

	a.mu.Lock()
	a.workspace = storage.Handle{}
	a.gitRepo = nil
	a.mu.Unlock()

	a.navigator.SetStatusSource(nil)
	a.navigator.Detach()
	a.autosaver.SetWorkspace("")
	a.eventHub.EmitWorkspaceChanged(eventhub.WorkspaceChangedEvent{HasFolder: false})
}

// startWatcher begins observing external changes under root
func (a *App) startWatcher(root string) {
	w, err := watcher.New(root, watcherDebounce, func(c watcher.Change) {
		a.onExternalChange(root, c)
	})
	if err != nil {
		log.Printf("watch %s: %v", root, err)
		return
	}

	a.mu.Lock()
	a.fsWatcher = w
	a.mu.Unlock()
}

func (a *App) dropWatcher() {
	a.mu.Lock()
	w := a.fsWatcher
	a.fsWatcher = nil
	a.mu.Unlock()

	if w != nil {
		w.Close()
	}
}

// onExternalChange invalidates the affected subtree and tells the
// frontend to re-list it
func (a *App) onExternalChange(root string, c watcher.Change) {
	rel, err := filepath.Rel(root, filepath.Dir(c.Path))
	if err != nil {
		return
	}
	treePath := filepath.ToSlash(rel)
	if treePath == "." {
		treePath = ""
	}

	a.navigator.Invalidate(treePath)
	a.eventHub.EmitTreeChanged(eventhub.TreeChangedEvent{
		Path:   treePath,
		Reason: string(c.Kind),
	})
}

// watchExpanded adds an expanded directory to the watcher so external
// changes inside it are observed too
func (a *App) watchExpanded(treePath string) {
	a.mu.RLock()
	w := a.fsWatcher
	root := a.workspace.Path
	a.mu.RUnlock()

	if w == nil || treePath == "" {
		return
	}
	abs := filepath.Join(root, filepath.FromSlash(treePath))
	if err := w.AddDir(abs); err != nil {
		log.Printf("watch %s: %v", abs, err)
	}
}
