// internal/tree/tree.go
package tree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"codepad/internal/folderstate"
	"codepad/internal/storage"
)

// Node is one rendered tree entry. Kind is a tag switched on
// exhaustively; file and directory nodes share this one shape.
type Node struct {
	Name      string       `json:"name"`
	Path      string       `json:"path"` // slash-joined ancestor names
	Kind      storage.Kind `json:"kind"`
	HandleID  string       `json:"handle_id"`
	GitStatus string       `json:"git_status,omitempty"`
}

// Lister is the slice of the storage adapter the navigator lists through
type Lister interface {
	ListChildren(ctx context.Context, dirID, pathPrefix string) ([]storage.Entry, error)
}

// StatusSource supplies git adornment per workspace-relative path.
// May be nil when the workspace is not a repository.
type StatusSource interface {
	StatusByPath() (map[string]string, error)
}

// Navigator owns the expanded-path set and the per-session listing cache.
// First expansion of a directory lists it; re-expansion serves the cache
// until an explicit refresh or a successful mutation in that subtree.
type Navigator struct {
	lister Lister
	state  *folderstate.Cache

	mu         sync.Mutex
	rootID     string
	folderName string
	expanded   map[string]bool
	cache      map[string][]Node // tree path -> listed children
	status     StatusSource
}

// New creates a Navigator persisting expansion state through state
func New(lister Lister, state *folderstate.Cache) *Navigator {
	return &Navigator{
		lister:   lister,
		state:    state,
		expanded: make(map[string]bool),
		cache:    make(map[string][]Node),
	}
}

// SetRoot attaches the navigator to a workspace folder, restoring any
// previously persisted expansion set for it.
func (n *Navigator) SetRoot(rootID, folderName string, restoredExpanded []string) {
	n.mu.Lock()
	n.rootID = rootID
	n.folderName = folderName
	n.expanded = make(map[string]bool, len(restoredExpanded))
	for _, p := range restoredExpanded {
		n.expanded[p] = true
	}
	n.cache = make(map[string][]Node)
	n.mu.Unlock()

	// The record must be loadable as soon as the folder is open, before
	// any expansion happens
	n.persist()
}

// SetStatusSource installs the git adornment source (nil to clear)
func (n *Navigator) SetStatusSource(s StatusSource) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = s
}

// Detach clears the workspace and its persisted record
func (n *Navigator) Detach() {
	n.mu.Lock()
	n.rootID = ""
	n.folderName = ""
	n.expanded = make(map[string]bool)
	n.cache = make(map[string][]Node)
	n.mu.Unlock()

	if n.state != nil {
		n.state.Clear()
	}
}

// RootID returns the workspace directory handle, "" when detached
func (n *Navigator) RootID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rootID
}

// Expand marks a directory expanded and returns its children. The first
// expansion lists through the adapter; later ones serve the session
// cache.
func (n *Navigator) Expand(ctx context.Context, dirID, path string) ([]Node, error) {
	nodes, err := n.children(ctx, dirID, path)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.expanded[path] = true
	n.mu.Unlock()
	n.persist()

	return nodes, nil
}

// Collapse unmarks a directory. The cache entry is kept: re-expanding
// does not re-list.
func (n *Navigator) Collapse(path string) {
	n.mu.Lock()
	delete(n.expanded, path)
	n.mu.Unlock()
	n.persist()
}

// Refresh drops the cache for path and its subtree and re-lists path
func (n *Navigator) Refresh(ctx context.Context, dirID, path string) ([]Node, error) {
	n.Invalidate(path)
	return n.children(ctx, dirID, path)
}

// Invalidate drops cached listings for path and everything below it.
// Called after a successful mutation in that subtree or a watcher event.
// The folder-state record is rewritten on the way out: mutations count
// as persistence triggers, same as expansion toggles.
func (n *Navigator) Invalidate(path string) {
	n.mu.Lock()
	delete(n.cache, path)
	prefix := path + "/"
	if path == "" {
		prefix = ""
	}
	for cached := range n.cache {
		if prefix == "" || strings.HasPrefix(cached, prefix) {
			delete(n.cache, cached)
		}
	}
	attached := n.rootID != ""
	n.mu.Unlock()

	if attached {
		n.persist()
	}
}

// ExpandedPaths returns the sorted expansion set
func (n *Navigator) ExpandedPaths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	paths := make([]string, 0, len(n.expanded))
	for p := range n.expanded {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsExpanded reports whether path is currently expanded
func (n *Navigator) IsExpanded(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expanded[path]
}

// children lists a directory with caching and sorting
func (n *Navigator) children(ctx context.Context, dirID, path string) ([]Node, error) {
	n.mu.Lock()
	if cached, ok := n.cache[path]; ok {
		n.mu.Unlock()
		return cached, nil
	}
	status := n.status
	n.mu.Unlock()

	entries, err := n.lister.ListChildren(ctx, dirID, path)
	if err != nil {
		return nil, err
	}

	var adorn map[string]string
	if status != nil {
		// Adornment is best effort; a status failure never blocks listing
		adorn, _ = status.StatusByPath()
	}

	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, Node{
			Name:      e.Name,
			Path:      e.Path,
			Kind:      e.Kind,
			HandleID:  e.HandleID,
			GitStatus: adorn[e.Path],
		})
	}
	sortNodes(nodes)

	n.mu.Lock()
	n.cache[path] = nodes
	n.mu.Unlock()

	return nodes, nil
}

// persist writes the folder-state record, best effort
func (n *Navigator) persist() {
	if n.state == nil {
		return
	}

	n.mu.Lock()
	record := folderstate.Record{
		HasFolder:     n.rootID != "",
		FolderName:    n.folderName,
		ExpandedPaths: make([]string, 0, len(n.expanded)),
	}
	for p := range n.expanded {
		record.ExpandedPaths = append(record.ExpandedPaths, p)
	}
	n.mu.Unlock()

	sort.Strings(record.ExpandedPaths)
	n.state.Save(record)
}

// sortNodes orders directories first, then case-insensitive
// lexicographically by name. Plain ToLower compare, not locale-aware,
// everywhere the tree sorts.
func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Kind != b.Kind {
			return a.Kind == storage.KindDirectory
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}
