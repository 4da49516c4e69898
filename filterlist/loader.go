package filterlist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// DefaultDirName is the conventional name of the directory with the filter
// lists inside of the configuration directory.
const DefaultDirName = "adblock"

// LoadFile loads a filter list from the file at path.  The name of the list
// is the base name of the file.  If reading fails in the middle of the file,
// l contains the rules read so far and err is not nil.
func LoadFile(path string) (l *FilterList, err error) {
	return loadFile(path, nil)
}

// loadFile loads a filter list from the file at path and calls onErr for
// every rejected line.
func loadFile(path string, onErr lineErrorFunc) (l *FilterList, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening filter list: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	l = &FilterList{
		Name: filepath.Base(path),
	}

	err = l.read(f, onErr)
	if err != nil {
		return l, fmt.Errorf("reading filter list %q: %w", l.Name, err)
	}

	return l, nil
}

// LoadDir loads every regular, non-hidden file in the directory at path as a
// filter list.  Symbolic links to regular files are followed, subdirectories
// are not visited.  The lists are sorted by
// file name.
//
// If the directory cannot be read, LoadDir returns an error and the caller
// should proceed without filter lists.  If a file cannot be read, it's
// logged and skipped.  If reading fails in the middle of a file, the rules
// read so far are kept.
func LoadDir(ctx context.Context, path string, logger *slog.Logger) (c Collection, err error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading filter list directory: %w")
	}

	slices.SortFunc(entries, func(a, b os.DirEntry) (res int) {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !isRegularFile(path, e) {
			continue
		}

		if err = ctx.Err(); err != nil {
			return c, fmt.Errorf("loading filter lists: %w", err)
		}

		l := loadDirFile(ctx, filepath.Join(path, name), logger)
		if l != nil {
			c = append(c, l)
		}
	}

	logger.InfoContext(ctx, "loaded filter lists", "dir", path, "num_lists", len(c))

	return c, nil
}

// isRegularFile returns true if e is a regular file or a symbolic link to
// one.
func isRegularFile(dir string, e os.DirEntry) (ok bool) {
	typ := e.Type()
	if typ&os.ModeSymlink == 0 {
		return typ.IsRegular()
	}

	fi, err := os.Stat(filepath.Join(dir, e.Name()))

	return err == nil && fi.Mode().IsRegular()
}

// loadDirFile loads a single list for [LoadDir] and logs the problems.  l is
// nil if the file could not be opened.
func loadDirFile(ctx context.Context, path string, logger *slog.Logger) (l *FilterList) {
	l, err := loadFile(path, func(lineNum int, line string, lineErr error) {
		logger.DebugContext(
			ctx,
			"skipping rule",
			"file", path,
			"line_num", lineNum,
			"line", line,
			slogutil.KeyError, lineErr,
		)
	})
	if err != nil {
		logger.WarnContext(ctx, "loading filter list", "file", path, slogutil.KeyError, err)

		if l == nil {
			return nil
		}
	}

	logger.DebugContext(
		ctx,
		"loaded filter list",
		"name", l.Name,
		"title", l.Title,
		"num_rules", l.Len(),
		"num_skipped", l.Skipped,
	)

	return l
}
