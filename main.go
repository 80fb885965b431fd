//go:build !server

// +build !server

package main

import (
	"context"
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"codepad/internal/storage"
	"codepad/internal/xerrors"
)

//go:embed all:frontend/dist
var assets embed.FS

// wailsPicker backs the storage picker with native Wails dialogs
type wailsPicker struct {
	ctx context.Context
}

func (p *wailsPicker) PickDirectory(ctx context.Context) (string, error) {
	path, err := runtime.OpenDirectoryDialog(p.ctx, runtime.OpenDialogOptions{
		Title: "Open Folder",
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", xerrors.NewCancelled("open folder")
	}
	return path, nil
}

func (p *wailsPicker) PickFiles(ctx context.Context) ([]string, error) {
	paths, err := runtime.OpenMultipleFilesDialog(p.ctx, runtime.OpenDialogOptions{
		Title: "Open Files",
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, xerrors.NewCancelled("open files")
	}
	return paths, nil
}

func (p *wailsPicker) PickSaveTarget(ctx context.Context, suggestedName string) (string, error) {
	path, err := runtime.SaveFileDialog(p.ctx, runtime.SaveDialogOptions{
		Title:           "Save As",
		DefaultFilename: suggestedName,
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", xerrors.NewCancelled("save as")
	}
	return path, nil
}

func main() {
	app := NewApp()
	app.newPicker = func(ctx context.Context) storage.Picker {
		return &wailsPicker{ctx: ctx}
	}

	err := wails.Run(&options.App{
		Title:     "codepad",
		Width:     1100,
		Height:    700,
		MinWidth:  900,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour:         &options.RGBA{R: 0, G: 0, B: 0, A: 0},
		EnableDefaultContextMenu: true,
		LogLevel:                 logger.DEBUG,
		LogLevelProduction:       logger.INFO,
		OnStartup:                app.startup,
		OnShutdown:               app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
			},
			WebviewIsTransparent: true,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: true,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
