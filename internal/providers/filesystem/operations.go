package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// MoveResult reports the root-relative endpoints of a completed move.
type MoveResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Move renames source to destination. The destination must not exist and
// must not lie inside a moved directory. Parents of the destination are
// created. When rename fails across devices the tree is copied and the
// source removed; a failed copy leaves the partial destination in place.
func (t *FileTree) Move(ctx context.Context, source, destination string) (*MoveResult, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(destination) == "" {
		return nil, types.Errorf(types.KindInvalidArgument, "move", "", "source and destination are required")
	}

	src, err := t.Resolver.ResolveEntry(source)
	if err != nil {
		return nil, err
	}
	if src.IsRoot() {
		return nil, types.Errorf(types.KindInvalidArgument, "move", "", "cannot move the storage root")
	}

	dst, err := t.Resolver.ResolveCreatable(destination)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(dst.Abs); err == nil || dst.IsRoot() {
		return nil, types.New(types.KindAlreadyExists, "move", dst.Rel)
	}

	info, err := os.Lstat(src.Abs)
	if err != nil {
		return nil, types.FromOS("move", src.Rel, err)
	}
	if info.IsDir() && isWithin(dst.Abs, src.Abs) {
		return nil, types.Errorf(types.KindInvalidArgument, "move", src.Rel, "cannot move a directory into itself")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parentRel := ""
	if i := strings.LastIndex(dst.Rel, "/"); i >= 0 {
		parentRel = dst.Rel[:i]
	}
	if err := t.EnsureDirectory(filepath.Dir(dst.Abs), parentRel); err != nil {
		return nil, err
	}

	err = t.rename(src.Abs, dst.Abs)
	if err != nil && errors.Is(err, syscall.EXDEV) {
		t.Logger.Info("Rename crossed devices, copying", zap.String("source", src.Rel), zap.String("destination", dst.Rel))
		err = t.copyThenRemove(ctx, src.Abs, dst.Abs, info.IsDir())
	}
	if err != nil {
		t.Logger.Error("Move failed", zap.String("source", src.Rel), zap.String("destination", dst.Rel), zap.Error(err))
		return nil, types.FromOS("move", src.Rel, err)
	}

	t.Logger.Info("Moved item", zap.String("source", src.Rel), zap.String("destination", dst.Rel))
	return &MoveResult{Source: src.Rel, Destination: dst.Rel}, nil
}

func (t *FileTree) copyThenRemove(ctx context.Context, src, dst string, isDir bool) error {
	if err := copyTree(ctx, src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if isDir {
		return removeTree(ctx, src)
	}
	return os.Remove(src)
}

// isWithin reports whether p equals dir or lies below it.
func isWithin(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

// copyTree copies src to dst with an explicit stack, preserving modes and
// modification times and recreating symlinks as symlinks.
func copyTree(ctx context.Context, src, dst string) error {
	type job struct{ src, dst string }
	type dirTimes struct {
		path string
		info os.FileInfo
	}

	stack := []job{{src: src, dst: dst}}
	var dirs []dirTimes

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(j.src)
		if err != nil {
			return err
		}

		switch mode := info.Mode(); {
		case mode&os.ModeSymlink != 0:
			target, err := os.Readlink(j.src)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, j.dst); err != nil {
				return err
			}
		case mode.IsDir():
			if err := os.Mkdir(j.dst, mode.Perm()|0o700); err != nil {
				return err
			}
			entries, err := os.ReadDir(j.src)
			if err != nil {
				return err
			}
			for _, e := range entries {
				stack = append(stack, job{
					src: filepath.Join(j.src, e.Name()),
					dst: filepath.Join(j.dst, e.Name()),
				})
			}
			dirs = append(dirs, dirTimes{path: j.dst, info: info})
		case mode.IsRegular():
			if err := copyFile(j.src, j.dst, info); err != nil {
				return err
			}
		default:
			return fmt.Errorf("cannot copy special file %s", filepath.Base(j.src))
		}
	}

	// Directory modes and times last, since creating children touches them.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chmod(d.path, d.info.Mode().Perm()); err != nil {
			return err
		}
		mt := d.info.ModTime()
		if err := os.Chtimes(d.path, mt, mt); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
