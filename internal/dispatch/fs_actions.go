package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mymy770/Clara/internal/directive"
	"github.com/mymy770/Clara/internal/fsdriver"
)

type fsHandler func(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome)

// fsHandlers maps every recognized filesystem action to its handler. Params
// arrive as the directive's "params" object, keyed by the driver argument
// names.
var fsHandlers = map[string]fsHandler{
	"read_text":   readTextAction,
	"write_text":  writeTextAction,
	"append_text": appendTextAction,
	"list_dir":    listDirAction,
	"make_dir":    makeDirAction,
	"move_path":   movePathAction,
	"delete_path": deletePathAction,
	"stat_path":   statPathAction,
	"search_text": searchTextAction,
}

func readTextAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for read")
	}
	content, err := disp.fs.ReadText(path)
	if err != nil {
		return fsFailure("read", path, err)
	}
	return successf("Read %s (%d chars):\n\n%s", path, len(content), content)
}

func writeTextAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for write")
	}
	content := params.String("content")
	if err := disp.fs.WriteText(path, content, params.Bool("overwrite", false)); err != nil {
		return fsFailure("write", path, err)
	}
	return successf("Wrote %s (%d chars)", path, len(content))
}

func appendTextAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for append")
	}
	if err := disp.fs.AppendText(path, params.String("content")); err != nil {
		return fsFailure("append to", path, err)
	}
	return successf("Appended to %s", path)
}

func listDirAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	entries, err := disp.fs.ListDir(path)
	if err != nil {
		return fsFailure("list", displayPath(path), err)
	}
	if len(entries) == 0 {
		return emptyf("Empty directory: %s", displayPath(path))
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			lines = append(lines, fmt.Sprintf("- %s/", e.Path))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (%d bytes)", e.Path, e.Size))
		}
	}
	return successf("%d item(s) in %s:\n%s", len(entries), displayPath(path), strings.Join(lines, "\n"))
}

func makeDirAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for make_dir")
	}
	if err := disp.fs.MakeDir(path, params.Bool("exist_ok", true)); err != nil {
		return fsFailure("create directory", path, err)
	}
	return successf("Directory created: %s", path)
}

func movePathAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	src, dst := params.String("src"), params.String("dst")
	if src == "" || dst == "" {
		return failf("Missing src or dst for move")
	}
	if err := disp.fs.MovePath(src, dst, params.Bool("overwrite", false)); err != nil {
		return fsFailure("move", src, err)
	}
	return successf("Moved %s to %s", src, dst)
}

func deletePathAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for delete")
	}
	if err := disp.fs.DeletePath(path); err != nil {
		return fsFailure("delete", path, err)
	}
	return successf("Deleted: %s", path)
}

func statPathAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	path := params.String("path")
	if path == "" {
		return failf("Missing path for stat")
	}
	st, err := disp.fs.StatPath(path)
	if err != nil {
		return fsFailure("stat", path, err)
	}
	if !st.Exists {
		return emptyf("%s does not exist", path)
	}
	if st.IsDir {
		return successf("%s: directory", path)
	}
	return successf("%s: file, %d bytes", path, st.Size)
}

func searchTextAction(disp *Dispatcher, ctx context.Context, params directive.Directive) (string, Outcome) {
	query := params.String("query")
	if query == "" {
		return failf("Missing query for search")
	}
	maxResults := 0
	if n, ok := params.Int64("max_results"); ok {
		maxResults = int(n)
	}
	hits, err := disp.fs.SearchText(query, params.String("start"), maxResults, params.StringSlice("extensions"))
	if err != nil {
		return fsFailure("search", displayPath(params.String("start")), err)
	}
	if len(hits) == 0 {
		return emptyf("No matches for '%s'", query)
	}
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, fmt.Sprintf("- %s: %s", h.Path, h.Snippet))
	}
	return successf("%d match(es) for '%s':\n%s", len(hits), query, strings.Join(lines, "\n"))
}

// fsFailure renders a driver error as a user-visible failure string, keeping
// the sentinel cases readable.
func fsFailure(verb, path string, err error) (string, Outcome) {
	switch {
	case errors.Is(err, fsdriver.ErrPathEscape):
		return failf("Path outside workspace: %s", path)
	case errors.Is(err, fsdriver.ErrNotFound):
		return failf("Not found: %s", path)
	case errors.Is(err, fsdriver.ErrAlreadyExists):
		return failf("Already exists: %s", path)
	}
	return failf("Could not %s %s: %v", verb, path, err)
}

func displayPath(path string) string {
	if path == "" {
		return "."
	}
	return path
}
