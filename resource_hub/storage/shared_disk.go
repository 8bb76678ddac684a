package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
	"biodata_platform/utils/logging"
)

// ErrFileMissing indicates a file the database says exists is absent from
// the store. This is an integrity failure, not a user error.
var ErrFileMissing = errors.New("file missing from storage")

type SharedDiskStorage struct {
	basepath string
}

func NewSharedDisk(basepath string) Storage {
	slog.Info("creating new shared disk storage", "basepath", basepath)
	return &SharedDiskStorage{basepath: basepath}
}

func (s *SharedDiskStorage) fullpath(path string) string {
	return filepath.Join(s.basepath, path)
}

func (s *SharedDiskStorage) Read(path string) (io.ReadCloser, error) {
	fullpath := s.fullpath(path)
	file, err := os.Open(fullpath)
	if err != nil {
		slog.Error("error opening file for read", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return nil, fmt.Errorf("error reading file %v: %w", path, err)
	}

	return file, nil
}

func (s *SharedDiskStorage) Write(path string, data io.Reader) error {
	fullpath := s.fullpath(path)

	err := os.MkdirAll(filepath.Dir(fullpath), 0777)
	if err != nil {
		slog.Error("error creating parent directory", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return fmt.Errorf("error creating parent directory %v: %w", path, err)
	}

	file, err := os.OpenFile(fullpath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		slog.Error("error opening file for writing", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return fmt.Errorf("error opening file %v: %w", path, err)
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	if err != nil {
		slog.Error("error writing to file", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return fmt.Errorf("error writing to file %v: %w", path, err)
	}

	return nil
}

func (s *SharedDiskStorage) Delete(path string) error {
	fullpath := s.fullpath(path)
	err := os.Remove(fullpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Error("tried to delete a path pointing at a non-existent file", "path", fullpath, "code", logging.STORAGE_OPERATION)
			return nil
		}
		slog.Error("error deleting file", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return fmt.Errorf("error deleting file %v: %w", path, err)
	}
	return nil
}

func (s *SharedDiskStorage) Exists(path string) (bool, error) {
	fullpath := s.fullpath(path)
	_, err := os.Stat(fullpath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	slog.Error("error checking if file exists", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
	return false, fmt.Errorf("error checking if file %v exists: %w", fullpath, err)
}

func (s *SharedDiskStorage) Size(path string) (int64, error) {
	fullpath := s.fullpath(path)

	info, err := os.Stat(fullpath)
	if err != nil {
		slog.Error("error getting stats for file", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		return 0, fmt.Errorf("error getting stats for file %v: %w", fullpath, err)
	}

	return info.Size(), nil
}

// EnsureDir creates the directory if needed. An "already exists" outcome is
// benign: independent workers may race to provision the same user directory.
// Permission failures are fatal and propagated.
func (s *SharedDiskStorage) EnsureDir(path string) error {
	fullpath := s.fullpath(path)
	err := os.MkdirAll(fullpath, 0777)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			slog.Error("could not create directory due to permissions", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		} else {
			slog.Error("error creating directory", "path", fullpath, "error", err, "code", logging.STORAGE_OPERATION)
		}
		return fmt.Errorf("error creating directory %v: %w", path, err)
	}
	return nil
}

// Move relocates a file within the store. The source must exist; its absence
// means the database and the filesystem disagree. Since final paths are
// prefixed with a uuid a collision is nigh impossible, but it is still
// checked: an occupied destination gets an integer prepended to its basename
// (b.txt -> 0b.txt -> 10b.txt ...) until a free name is found.
func (s *SharedDiskStorage) Move(src, dst string) (string, error) {
	srcFull := s.fullpath(src)
	if _, err := os.Stat(srcFull); err != nil {
		slog.Error("move source does not exist, database may be corrupted", "path", srcFull, "error", err, "code", logging.STORAGE_OPERATION)
		return "", fmt.Errorf("%w: %v", ErrFileMissing, src)
	}

	dstFull := s.fullpath(dst)
	if err := os.MkdirAll(filepath.Dir(dstFull), 0777); err != nil {
		slog.Error("error creating destination directory for move", "path", dstFull, "error", err, "code", logging.STORAGE_OPERATION)
		return "", fmt.Errorf("error creating destination directory for %v: %w", dst, err)
	}

	for i := 0; ; i++ {
		if _, err := os.Stat(dstFull); errors.Is(err, os.ErrNotExist) {
			break
		}
		slog.Info("file already exists at move destination, changing destination filename", "path", dstFull, "code", logging.STORAGE_OPERATION)
		dir, base := filepath.Dir(dst), filepath.Base(dst)
		dst = filepath.Join(dir, fmt.Sprintf("%d%s", i, base))
		dstFull = s.fullpath(dst)
	}

	if err := os.Rename(srcFull, dstFull); err != nil {
		if errors.Is(err, os.ErrExist) {
			// the destination was free moments ago, so something outside
			// this process wrote it; include the directory listing for the
			// post-mortem
			listing, _ := os.ReadDir(filepath.Dir(dstFull))
			names := make([]string, 0, len(listing))
			for _, entry := range listing {
				names = append(names, entry.Name())
			}
			slog.Error("file exists at destination despite collision check", "path", dstFull, "directory_listing", strings.Join(names, ", "), "code", logging.STORAGE_OPERATION)
		} else {
			slog.Error("error moving file", "src", srcFull, "dst", dstFull, "error", err, "code", logging.STORAGE_OPERATION)
		}
		return "", fmt.Errorf("error moving file %v to %v: %w", src, dst, err)
	}

	return dst, nil
}

func (s *SharedDiskStorage) Usage() (UsageStats, error) {
	var stat unix.Statfs_t

	err := unix.Statfs(s.basepath, &stat)
	if err != nil {
		slog.Error("error getting disk usage for shared storage", "path", s.basepath, "error", err, "code", logging.STORAGE_OPERATION)
		return UsageStats{}, fmt.Errorf("error getting disk usage stats: %w", err)
	}

	return UsageStats{
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bfree * uint64(stat.Bsize),
	}, nil
}

func (s *SharedDiskStorage) Location() string {
	return s.basepath
}
