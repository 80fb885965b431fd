// internal/storage/picker.go
package storage

import (
	"context"

	"codepad/internal/xerrors"
)

// Picker is the host-provided dialog capability. The desktop build backs
// it with Wails dialogs; the headless server build has none and runs the
// whole session in fallback mode.
//
// Implementations return a CANCELLED error when the user dismisses the
// dialog; dialogs block until user action, never time out.
type Picker interface {
	// PickDirectory prompts for a directory and returns its path
	PickDirectory(ctx context.Context) (string, error)
	// PickFiles prompts for one or more files to open
	PickFiles(ctx context.Context) ([]string, error)
	// PickSaveTarget prompts for a save-as destination
	PickSaveTarget(ctx context.Context, suggestedName string) (string, error)
}

// PermissionGuard models the host permission prompt: Query checks the
// current grant, Request performs one interactive re-request.
type PermissionGuard interface {
	Query(path string, write bool) bool
	Request(path string, write bool) bool
}

// allowAllGuard is the desktop default: the OS already gated access when
// the user picked the folder.
type allowAllGuard struct{}

func (allowAllGuard) Query(string, bool) bool   { return true }
func (allowAllGuard) Request(string, bool) bool { return true }

// NoPicker marks the capability as absent. Directory operations fail
// UNSUPPORTED before any dialog is attempted.
type NoPicker struct{}

func (NoPicker) PickDirectory(context.Context) (string, error) {
	return "", xerrors.NewUnsupported("pickDirectory")
}

func (NoPicker) PickFiles(context.Context) ([]string, error) {
	return nil, xerrors.NewUnsupported("pickFiles")
}

func (NoPicker) PickSaveTarget(context.Context, string) (string, error) {
	return "", xerrors.NewUnsupported("saveAs")
}
