package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
	"github.com/GriffinCanCode/filedesk/internal/shared/utils"
)

// FileTree lists, creates, deletes and moves entries below the root.
type FileTree struct {
	*FilesystemOps
	collator *Collator
}

// NewFileTree creates a file tree that sorts listings for locale.
func NewFileTree(ops *FilesystemOps, locale string) *FileTree {
	return &FileTree{FilesystemOps: ops, collator: NewCollator(locale)}
}

// Collator returns the collator used for listings.
func (t *FileTree) Collator() *Collator {
	return t.collator
}

// List returns the direct children of dir, directories first.
func (t *FileTree) List(ctx context.Context, dir string) (*Listing, error) {
	target, err := t.Resolver.Resolve(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target.Abs)
	if err != nil {
		return nil, types.FromOS("list", target.Rel, err)
	}
	if !info.IsDir() {
		return nil, types.New(types.KindNotADirectory, "list", target.Rel)
	}

	dirEntries, err := os.ReadDir(target.Abs)
	if err != nil {
		return nil, types.FromOS("list", target.Rel, err)
	}

	files := make([]FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		onDisk := de.Name()
		childAbs := filepath.Join(target.Abs, onDisk)

		// Kind follows symlinks; dangling links are listed as files.
		childInfo, err := os.Stat(childAbs)
		if err != nil {
			childInfo, err = os.Lstat(childAbs)
			if err != nil {
				// Removed between ReadDir and Stat.
				continue
			}
		}

		name := utils.RepairName(onDisk)
		entry := newFileEntry(target.Rel, name, childInfo)
		if t.Filter.Excluded(entry.Path) {
			continue
		}
		files = append(files, entry)
	}

	t.collator.Sort(files)

	return &Listing{Files: files, CurrentPath: target.Rel}, nil
}

// CreateDirectory creates name inside parent and returns the sanitized
// name actually used. Missing parents are created.
func (t *FileTree) CreateDirectory(ctx context.Context, parent, name string) (string, error) {
	folder := utils.SanitizeFolderName(utils.RepairName(name))
	if err := utils.ValidateName(folder, "folder name"); err != nil {
		return "", types.E(types.KindInvalidArgument, "create directory", "", err)
	}

	dir, err := t.Resolver.ResolveCreatable(parent)
	if err != nil {
		return "", err
	}
	rel := joinRel(dir.Rel, folder)
	target := filepath.Join(dir.Abs, folder)

	if _, err := os.Lstat(target); err == nil {
		return "", types.New(types.KindAlreadyExists, "create directory", rel)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := t.EnsureDirectory(dir.Abs, dir.Rel); err != nil {
		return "", err
	}
	if err := os.Mkdir(target, dirPerm); err != nil {
		return "", types.FromOS("create directory", rel, err)
	}

	t.Logger.Info("Created directory", zap.String("path", rel))
	return folder, nil
}

// EnsureDirectory creates abs and its parents, then re-checks that the
// created chain still canonicalizes inside the root.
func (ops *FilesystemOps) EnsureDirectory(abs, rel string) error {
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return types.FromOS("create directory", rel, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return types.FromOS("create directory", rel, err)
	}
	if !ops.Resolver.Contains(canon) {
		ops.Logger.Warn("Directory escaped root after creation", zap.String("path", rel))
		return types.New(types.KindOutsideRoot, "create directory", rel)
	}
	return nil
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
