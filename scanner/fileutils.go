package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"imagededup/imageprocessor"
	"imagededup/logging"
)

// collectImageFiles walks root in lexical order and returns the files whose
// format is in formats. The directory skipDir (the move destination) is not
// descended into. Unreadable entries are logged and skipped.
func collectImageFiles(root, skipDir string, formats []imageprocessor.FormatType) ([]string, error) {
	skipAbs := ""
	if skipDir != "" {
		if abs, err := filepath.Abs(skipDir); err == nil {
			skipAbs = abs
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.LogWarning("Error accessing path %s: %v", path, err)
			return nil
		}

		if d.IsDir() {
			if skipAbs != "" && path != root {
				if abs, err := filepath.Abs(path); err == nil && abs == skipAbs {
					logging.DebugLog("Skipping destination directory %s", path)
					return filepath.SkipDir
				}
			}
			return nil
		}

		if d.Type().IsRegular() && imageprocessor.HasFormat(path, formats) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk %s: %w", root, err)
	}
	return files, nil
}

// MoveFile moves src into destDir keeping its base name. An existing file
// with that name is never overwritten: a _N suffix is added instead.
func MoveFile(src, destDir string) (string, error) {
	dest, err := uniqueDestination(destDir, filepath.Base(src))
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, dest); err != nil {
		if !isCrossDevice(err) {
			return "", fmt.Errorf("cannot move %s to %s: %w", src, dest, err)
		}
		if err := copyAndRemove(src, dest); err != nil {
			return "", err
		}
	}
	return dest, nil
}

func uniqueDestination(destDir, name string) (string, error) {
	candidate := filepath.Join(destDir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; ; i++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("cannot stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

func copyAndRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("cannot copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("cannot close %s: %w", dest, err)
	}

	os.Chtimes(dest, info.ModTime(), info.ModTime())
	in.Close()
	return os.Remove(src)
}
