package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type pathArgs struct {
	Path string `json:"path"`
}

type contentArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type listArgs struct {
	Directory string `json:"directory"`
}

type srcDestArgs struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

func (c *Catalog) writeFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[contentArgs](raw)
	if err != nil {
		return Result{}, err
	}
	if err := writeInRoot(env.Root(), args.Path, args.Content, os.O_TRUNC); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("File written successfully: %s", args.Path))
}

func (c *Catalog) appendFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[contentArgs](raw)
	if err != nil {
		return Result{}, err
	}
	if err := writeInRoot(env.Root(), args.Path, args.Content, os.O_APPEND); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("Content appended successfully to: %s", args.Path))
}

// writeInRoot creates parent directories and writes content with mode
// os.O_TRUNC or os.O_APPEND.
func writeInRoot(root, p, content string, mode int) error {
	target, err := resolvePath(root, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	f, err := openFileNoFollow(target, os.O_CREATE|os.O_WRONLY|mode, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Catalog) readFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[pathArgs](raw)
	if err != nil {
		return Result{}, err
	}
	target, err := resolvePath(env.Root(), args.Path)
	if err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return Result{}, err
	}
	return okResult(string(data))
}

func (c *Catalog) deleteFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[pathArgs](raw)
	if err != nil {
		return Result{}, err
	}
	root := env.Root()
	target, err := resolvePath(root, args.Path)
	if err != nil {
		return Result{}, err
	}
	if displayPath(root, target) == "." {
		return Result{}, fmt.Errorf("refusing to delete the workspace root")
	}

	if err := os.Remove(target); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("File deleted successfully: %s", args.Path))
}

// listFiles lists regular files and directories (with a trailing "/").
// A missing directory is created and reported as empty.
func (c *Catalog) listFiles(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[listArgs](raw)
	if err != nil {
		return Result{}, err
	}
	if args.Directory == "" {
		args.Directory = "."
	}
	target, err := resolvePath(env.Root(), args.Directory)
	if err != nil {
		return Result{}, err
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		if mkErr := os.MkdirAll(target, 0755); mkErr != nil {
			return Result{}, err
		}
		return okResult("No files in workspace (directory created)")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch {
		case entry.Type().IsRegular():
			names = append(names, entry.Name())
		case entry.IsDir():
			names = append(names, entry.Name()+"/")
		}
	}
	if len(names) == 0 {
		return okResult("No files in workspace")
	}
	return okResult(strings.Join(names, "\n"))
}

func (c *Catalog) copyFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[srcDestArgs](raw)
	if err != nil {
		return Result{}, err
	}
	root := env.Root()
	src, err := resolvePath(root, args.Src)
	if err != nil {
		return Result{}, err
	}
	dest, err := resolvePath(root, args.Dest)
	if err != nil {
		return Result{}, err
	}

	in, err := os.Open(src)
	if err != nil {
		return Result{}, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%s is a directory", args.Src)
	}
	if destInfo, err := os.Stat(dest); err == nil && os.SameFile(info, destInfo) {
		return Result{}, fmt.Errorf("%s and %s are the same file", args.Src, args.Dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Result{}, err
	}
	out, err := openFileNoFollow(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return Result{}, err
	}
	if err := out.Close(); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("File copied from %s to %s", args.Src, args.Dest))
}

func (c *Catalog) moveFile(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[srcDestArgs](raw)
	if err != nil {
		return Result{}, err
	}
	root := env.Root()
	src, err := resolvePath(root, args.Src)
	if err != nil {
		return Result{}, err
	}
	dest, err := resolvePath(root, args.Dest)
	if err != nil {
		return Result{}, err
	}
	if displayPath(root, src) == "." {
		return Result{}, fmt.Errorf("refusing to move the workspace root")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Result{}, err
	}
	if err := os.Rename(src, dest); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("File moved from %s to %s", args.Src, args.Dest))
}
