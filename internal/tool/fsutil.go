package tool

import (
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns is the fixed set of directories and file
// patterns grep, find_files, and list_dir all skip by default.
var defaultIgnorePatterns = []string{
	"node_modules/",
	"__pycache__/",
	".git/",
	"dist/",
	"build/",
	"target/",
	"vendor/",
	"bin/",
	"obj/",
	".idea/",
	".vscode/",
	".cache/",
	"coverage/",
	"tmp/",
	"temp/",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.so",
	"*.dylib",
	"*.dll",
	"*.exe",
}

// shouldIgnore reports whether name (a single path segment) matches
// one of patterns, either as a directory name or a glob.
func shouldIgnore(name string, isDir bool, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			if isDir && name == strings.TrimSuffix(pattern, "/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// resolveWorkingPath resolves a possibly-relative path against dir,
// returning an absolute path. An empty p resolves to dir itself.
func resolveWorkingPath(dir, p string) string {
	if p == "" {
		return dir
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// relativeToDir renders p relative to dir for display back to the
// model, falling back to p unchanged if it isn't under dir.
func relativeToDir(dir, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}
