package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/driftcode/agentserver/pkg/types"
)

type registeredTool struct {
	def     types.ToolDefinition
	handler Handler
}

// Registry is the canonical catalog of tools, indexed by name and by
// category. It is append-only after startup: Register panics on a
// duplicate name so collisions surface at boot rather than at
// dispatch time.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool to the catalog. It panics if name is already
// registered — a collision here is a programming error, not a
// runtime condition callers should handle.
func (r *Registry) Register(def types.ToolDefinition, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		panic(fmt.Sprintf("tool: duplicate registration for %q", def.Name))
	}
	r.tools[def.Name] = registeredTool{def: def, handler: handler}
}

// Get returns the definition and handler for name, if registered.
func (r *Registry) Get(name string) (types.ToolDefinition, Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return types.ToolDefinition{}, nil, false
	}
	return t.def, t.handler, true
}

// List returns every registered definition, sorted by name.
func (r *Registry) List() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns every definition in cat, sorted by name.
func (r *Registry) ByCategory(cat types.ToolCategory) []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.ToolDefinition
	for _, t := range r.tools {
		if t.def.Category == cat {
			out = append(out, t.def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories summarizes every non-meta category, sorted by name, for
// load_tools()'s directory response and GET /tools.
func (r *Registry) Categories() []types.CategoryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCat := make(map[types.ToolCategory][]string)
	for _, t := range r.tools {
		if t.def.Category == types.CategoryMeta {
			continue
		}
		byCat[t.def.Category] = append(byCat[t.def.Category], t.def.Name)
	}

	cats := make([]types.ToolCategory, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	out := make([]types.CategoryInfo, 0, len(cats))
	for _, c := range cats {
		names := byCat[c]
		sort.Strings(names)
		out = append(out, types.CategoryInfo{
			Category:    c,
			Description: categoryDescription(c),
			ToolCount:   len(names),
			ToolNames:   names,
		})
	}
	return out
}

// LoadedView returns every meta tool plus every definition whose name
// is in loaded, sorted by name with no duplicates.
func (r *Registry) LoadedView(loaded map[string]bool) []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		if t.def.Category == types.CategoryMeta || loaded[t.def.Name] {
			out = append(out, t.def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func categoryDescription(cat types.ToolCategory) string {
	switch cat {
	case types.CategoryFileOps:
		return "Read, write, edit, and list files"
	case types.CategoryGit:
		return "Inspect repository diffs, status, and history"
	case types.CategorySearch:
		return "Search file contents and find files by pattern"
	case types.CategoryShell:
		return "Run arbitrary shell commands"
	default:
		return ""
	}
}

// DefaultRegistry builds the registry with every built-in handler
// wired in, as it would be constructed once at process startup.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(readFileDefinition(), readFileHandler)
	r.Register(writeFileDefinition(), writeFileHandler)
	r.Register(editFileDefinition(), editFileHandler)
	r.Register(listDirDefinition(), listDirHandler)
	r.Register(grepDefinition(), grepHandler)
	r.Register(findFilesDefinition(), findFilesHandler)
	r.Register(gitDiffDefinition(), gitDiffHandler)
	r.Register(gitStatusDefinition(), gitStatusHandler)
	r.Register(gitLogDefinition(), gitLogHandler)
	r.Register(runShellDefinition(), runShellHandler)
	r.Register(loadToolsDefinition(), loadToolsHandler(r))

	return r
}
