// internal/registry/language.go
package registry

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage is used for unknown extensions
const DefaultLanguage = "plaintext"

// languageByExt maps filename extensions to editor language modes
var languageByExt = map[string]string{
	".c":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cs":    "csharp",
	".css":   "css",
	".go":    "go",
	".h":     "c",
	".hpp":   "cpp",
	".html":  "html",
	".htm":   "html",
	".java":  "java",
	".js":    "javascript",
	".json":  "json",
	".jsx":   "javascript",
	".kt":    "kotlin",
	".lua":   "lua",
	".md":    "markdown",
	".php":   "php",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".sh":    "shell",
	".sql":   "sql",
	".swift": "swift",
	".toml":  "toml",
	".ts":    "typescript",
	".tsx":   "typescript",
	".txt":   "plaintext",
	".xml":   "xml",
	".yaml":  "yaml",
	".yml":   "yaml",
}

// InferLanguage derives the language mode from a filename extension
func InferLanguage(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return DefaultLanguage
}
