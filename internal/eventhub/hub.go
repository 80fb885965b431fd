// internal/eventhub/hub.go
package eventhub

import (
	"context"
)

// Broadcaster pushes events to the connected frontend. The desktop build
// backs it with Wails runtime events; the server build with the WebSocket
// broadcaster.
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// EventHub is the single fan-out point for frontend events
type EventHub struct {
	ctx         context.Context
	broadcaster Broadcaster
}

// New creates an EventHub
func New(ctx context.Context) *EventHub {
	return &EventHub{ctx: ctx}
}

// SetBroadcaster installs the transport-specific broadcaster
func (h *EventHub) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// Emit is the generic event sender used by manager-injected emitters
func (h *EventHub) Emit(eventName string, payload interface{}) {
	h.emit(eventName, payload)
}

func (h *EventHub) emit(eventName string, payload interface{}) {
	if h.broadcaster != nil {
		h.broadcaster.BroadcastEvent(eventName, payload)
	}
}

// Notification is the short-lived user-visible status line shown after a
// failed or noteworthy action. It names the action and a human-readable
// cause; it never carries stack traces or raw errors.
type Notification struct {
	Action  string `json:"action"`
	Cause   string `json:"cause,omitempty"`
	Level   string `json:"level"` // "info" or "error"
	Handled bool   `json:"handled"`
}

// EmitNotification shows a transient status message
func (h *EventHub) EmitNotification(n Notification) {
	h.emit("notification", n)
}

// TreeChangedEvent signals that a subtree needs re-listing
type TreeChangedEvent struct {
	Path   string `json:"path"` // tree path of the invalidated subtree, "" = root
	Reason string `json:"reason"`
}

// EmitTreeChanged signals tree invalidation
func (h *EventHub) EmitTreeChanged(event TreeChangedEvent) {
	h.emit("tree:changed", event)
}

// WorkspaceChangedEvent signals a folder being opened or detached
type WorkspaceChangedEvent struct {
	HasFolder  bool   `json:"has_folder"`
	FolderName string `json:"folder_name,omitempty"`
}

// EmitWorkspaceChanged signals workspace attach/detach
func (h *EventHub) EmitWorkspaceChanged(event WorkspaceChangedEvent) {
	h.emit("workspace:changed", event)
}

// SaveResultEvent reports the outcome of a disk sync for one document
type SaveResultEvent struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	Saved      bool   `json:"saved"`
	Cause      string `json:"cause,omitempty"`
}

// EmitSaveResult reports a disk-sync outcome
func (h *EventHub) EmitSaveResult(event SaveResultEvent) {
	h.emit("document:save-result", event)
}

// EmitAssistComplete delivers an AI-assist result
func (h *EventHub) EmitAssistComplete(action string, result string) {
	h.emit("assist:complete", map[string]interface{}{
		"action": action,
		"result": result,
	})
}

// EmitAssistError delivers an AI-assist failure
func (h *EventHub) EmitAssistError(action string, cause string) {
	h.emit("assist:error", map[string]interface{}{
		"action": action,
		"cause":  cause,
	})
}

// EmitTerminalOutput streams terminal output to the frontend
func (h *EventHub) EmitTerminalOutput(sessionID string, data string) {
	h.emit("terminal-output", map[string]interface{}{
		"session_id": sessionID,
		"data":       data,
	})
}
