package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rickchristie/think"
)

var errRestricted = errors.New("path is excluded")

// workspace serves a directory to the agent as a set of read-only tools.
type workspace struct {
	fsys     fs.FS
	pattern  string
	exclude  []string
	maxBytes int
	engine   *think.Engine
}

type listFilesInput struct {
	Pattern string `json:"pattern,omitempty" description:"Glob with ** support. Defaults to the configured pattern."`
}

type listFilesOutput struct {
	Files []string `json:"files"`
}

type readFileInput struct {
	Path string `json:"path" description:"Slash-separated path relative to the workspace root."`
}

type readFileOutput struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// FileNote is the summary of one file.
type FileNote struct {
	Path    string `json:"path"`
	Summary string `json:"summary" description:"One or two sentences."`
}

// FileSummary is the result of summarizing a workspace.
type FileSummary struct {
	Overview string     `json:"overview" description:"What the files are for, as a whole."`
	Files    []FileNote `json:"files"`
}

func (w *workspace) listFilesTool() think.Tool {
	return think.NewTool("list_files", "Lists files in the workspace matching a glob pattern.",
		func(ctx context.Context, in listFilesInput) (listFilesOutput, error) {
			pattern := in.Pattern
			if pattern == "" {
				pattern = w.pattern
			}
			if !doublestar.ValidatePattern(pattern) {
				return listFilesOutput{}, fmt.Errorf("invalid glob pattern %q", pattern)
			}

			matches, err := doublestar.Glob(w.fsys, pattern)
			if err != nil {
				return listFilesOutput{}, err
			}
			files := make([]string, 0, len(matches))
			for _, path := range matches {
				if w.restricted(path) {
					continue
				}
				info, err := fs.Stat(w.fsys, path)
				if err != nil || info.IsDir() {
					continue
				}
				files = append(files, path)
			}
			sort.Strings(files)
			return listFilesOutput{Files: files}, nil
		})
}

func (w *workspace) readFileTool() think.Tool {
	return think.NewTool("read_file", "Reads a text file from the workspace.",
		func(ctx context.Context, in readFileInput) (readFileOutput, error) {
			return w.read(in.Path)
		})
}

// summarizeFileTool summarizes a single file in a nested session, so the
// outer session only sees the short summary.
func (w *workspace) summarizeFileTool() think.Tool {
	return think.NewTool("summarize_file", "Summarizes one file in one or two sentences.",
		func(ctx context.Context, in readFileInput) (FileNote, error) {
			file, err := w.read(in.Path)
			if err != nil {
				return FileNote{}, err
			}
			summary, err := think.Think[string](w.engine).
				Text("Summarize the file").
				Display(file.Path).
				Textln("in one or two sentences. Its content is:").
				Text(file.Content).
				Run(ctx)
			if err != nil {
				return FileNote{}, err
			}
			return FileNote{Path: file.Path, Summary: summary}, nil
		})
}

func (w *workspace) read(path string) (readFileOutput, error) {
	if !fs.ValidPath(path) {
		return readFileOutput{}, fmt.Errorf("invalid path %q", path)
	}
	if w.restricted(path) {
		return readFileOutput{}, fmt.Errorf("%w: %s", errRestricted, path)
	}
	data, err := fs.ReadFile(w.fsys, path)
	if err != nil {
		return readFileOutput{}, err
	}
	if !utf8.Valid(data) {
		return readFileOutput{}, fmt.Errorf("%s is not a text file", path)
	}

	out := readFileOutput{Path: path, Content: string(data)}
	if w.maxBytes > 0 && len(data) > w.maxBytes {
		cut := w.maxBytes
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		out.Content = string(data[:cut])
		out.Truncated = true
	}
	return out, nil
}

func (w *workspace) restricted(path string) bool {
	for _, pattern := range w.exclude {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// summarize asks the agent for a FileSummary of the workspace.
func (w *workspace) summarize(ctx context.Context) (FileSummary, *think.Session, error) {
	return think.Think[FileSummary](w.engine).
		Text("Summarize the files matching").
		Debug(w.pattern).
		Text("in this workspace. Use").
		Tool(w.listFilesTool()).
		Text("to find them and").
		Tool(w.summarizeFileTool()).
		Text("for each one. Read files directly with").
		Tool(w.readFileTool()).
		Text("only when a summary is not enough.").
		Validate(func(s FileSummary) error {
			if len(s.Files) == 0 {
				return errors.New("files must not be empty")
			}
			return nil
		}).
		RunSession(ctx)
}

// ask answers a question about the workspace given an earlier summary.
func (w *workspace) ask(ctx context.Context, summary FileSummary, question string) (string, error) {
	return think.Think[string](w.engine).
		Textln("Here is a summary of a workspace:").
		Displayf("%+v\n", summary).
		Text("Answer this question about it:").
		Display(question).
		Text("(use").
		Tool(w.readFileTool()).
		Text("if the summary is not enough).").
		Run(ctx)
}
