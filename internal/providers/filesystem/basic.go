package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// Delete removes name inside dir. isDirectory must match the entry kind.
// Directories are removed with all their contents. The returned message is
// suitable for display.
func (t *FileTree) Delete(ctx context.Context, dir, name string, isDirectory bool) (string, error) {
	return t.deleteItem(ctx, dir, name, &isDirectory)
}

// DeleteMany removes every name inside dir, detecting each kind. One
// failing item does not stop the others.
func (t *FileTree) DeleteMany(ctx context.Context, dir string, names []string) []DeleteResult {
	results := make([]DeleteResult, 0, len(names))
	for _, name := range names {
		res := DeleteResult{Name: name}
		if _, err := t.deleteItem(ctx, dir, name, nil); err != nil {
			res.Error = types.MessageOf(err)
			res.Code = string(types.KindOf(err))
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return results
}

func (t *FileTree) deleteItem(ctx context.Context, dir, name string, wantDir *bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", types.Errorf(types.KindInvalidArgument, "delete", "", "name is required")
	}

	item, err := t.Resolver.ResolveEntry(paths.Join(dir, name))
	if err != nil {
		return "", err
	}
	if item.IsRoot() {
		return "", types.Errorf(types.KindInvalidArgument, "delete", "", "cannot delete the storage root")
	}

	info, err := os.Lstat(item.Abs)
	if err != nil {
		return "", types.FromOS("delete", item.Rel, err)
	}
	isDir := info.IsDir()
	if wantDir != nil && *wantDir != isDir {
		if *wantDir {
			return "", types.New(types.KindNotADirectory, "delete", item.Rel)
		}
		return "", types.New(types.KindNotAFile, "delete", item.Rel)
	}

	isLink := info.Mode()&os.ModeSymlink != 0
	if (!isLink && !writable(item.Abs)) || !writable(filepath.Dir(item.Abs)) {
		return "", types.New(types.KindPermissionDenied, "delete", item.Rel)
	}

	if isDir {
		err = removeTree(ctx, item.Abs)
	} else {
		err = os.Remove(item.Abs)
	}
	if err != nil {
		t.Logger.Error("Delete failed", zap.String("path", item.Rel), zap.Error(err))
		return "", types.FromOS("delete", item.Rel, err)
	}

	t.Logger.Info("Deleted item", zap.String("path", item.Rel), zap.Bool("directory", isDir))

	if isDir {
		return fmt.Sprintf("Folder %s deleted", item.Name()), nil
	}
	return fmt.Sprintf("File %s deleted", item.Name()), nil
}

// removeTree deletes root depth-first using an explicit stack. Symlinks are
// removed, never followed. The first failure aborts; entries removed before
// it stay removed.
func removeTree(ctx context.Context, root string) error {
	type frame struct {
		path   string
		listed bool
	}
	stack := []frame{{path: root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := len(stack) - 1
		if stack[top].listed {
			if err := os.Remove(stack[top].path); err != nil {
				return err
			}
			stack = stack[:top]
			continue
		}

		stack[top].listed = true
		dir := stack[top].path
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				stack = append(stack, frame{path: p})
				continue
			}
			if err := os.Remove(p); err != nil {
				return err
			}
		}
	}
	return nil
}
