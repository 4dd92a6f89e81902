// Package imagestore moves extracted images into the public, date-partitioned
// image directory.
package imagestore

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strconv"
	"time"

	// Registered image formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// PartitionLayout names the per-day image directory
const PartitionLayout = "2006-01-02"

// Asset is a stored image
type Asset struct {
	TempPath string
	RelPath  string
	Width    int
	Height   int
}

// Options configures where and how images are stored
type Options struct {
	PublicRoot string
	Directory  string
	Owner      string
	Group      string
	FileMode   os.FileMode
}

// Store copies temp images into the public image tree
type Store struct {
	fs     afero.Fs
	opts   Options
	now    func() time.Time
	logger *logrus.Logger
}

// NewStore creates an image store
func NewStore(fs afero.Fs, opts Options, logger *logrus.Logger) *Store {
	if opts.FileMode == 0 {
		opts.FileMode = 0644
	}
	return &Store{
		fs:     fs,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the clock used to pick the date partition
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Store copies the temp image into today's partition. A name already taken
// in the partition gets a unique prefix; existing files are never overwritten.
// The temp file is left for the caller to remove.
func (s *Store) Store(tempPath string) (Asset, error) {
	relDir := path.Join(filepath.ToSlash(s.opts.Directory), s.now().Format(PartitionLayout))
	absDir := filepath.Join(s.opts.PublicRoot, filepath.FromSlash(relDir))

	if err := s.fs.MkdirAll(absDir, 0755); err != nil {
		return Asset{}, fmt.Errorf("failed to create image directory: %w", err)
	}

	name := filepath.Base(tempPath)
	target := filepath.Join(absDir, name)
	exists, err := afero.Exists(s.fs, target)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to check image path: %w", err)
	}
	if exists {
		name = uuid.NewString() + "_" + name
		target = filepath.Join(absDir, name)
	}

	if err := s.copy(tempPath, target); err != nil {
		return Asset{}, err
	}

	// Permission and ownership failures leave the stored image in place.
	if err := s.fs.Chmod(target, s.opts.FileMode); err != nil {
		s.logger.WithError(err).WithField("path", target).Warn("Failed to set image permissions")
	}
	if err := s.chown(target); err != nil {
		s.logger.WithError(err).WithField("path", target).Warn("Failed to set image owner")
	}

	width, height, err := s.dimensions(target)
	if err != nil {
		if rmErr := s.fs.Remove(target); rmErr != nil {
			s.logger.WithError(rmErr).WithField("path", target).Warn("Failed to remove unreadable image")
		}
		return Asset{}, err
	}

	asset := Asset{
		TempPath: tempPath,
		RelPath:  path.Join(relDir, name),
		Width:    width,
		Height:   height,
	}

	s.logger.WithFields(logrus.Fields{
		"path":   asset.RelPath,
		"width":  width,
		"height": height,
	}).Debug("Stored image")
	return asset, nil
}

func (s *Store) copy(src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open temp image: %w", err)
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.opts.FileMode)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		s.fs.Remove(dst)
		return fmt.Errorf("failed to copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		s.fs.Remove(dst)
		return fmt.Errorf("failed to close image file: %w", err)
	}
	return nil
}

// chown applies the configured owner and group; unset names are left alone
func (s *Store) chown(target string) error {
	if s.opts.Owner == "" && s.opts.Group == "" {
		return nil
	}

	uid, gid := -1, -1
	if s.opts.Owner != "" {
		u, err := user.Lookup(s.opts.Owner)
		if err != nil {
			return fmt.Errorf("failed to look up owner %s: %w", s.opts.Owner, err)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return fmt.Errorf("invalid uid for %s: %w", s.opts.Owner, err)
		}
	}
	if s.opts.Group != "" {
		g, err := user.LookupGroup(s.opts.Group)
		if err != nil {
			return fmt.Errorf("failed to look up group %s: %w", s.opts.Group, err)
		}
		if gid, err = strconv.Atoi(g.Gid); err != nil {
			return fmt.Errorf("invalid gid for %s: %w", s.opts.Group, err)
		}
	}

	if err := s.fs.Chown(target, uid, gid); err != nil {
		return fmt.Errorf("failed to set image owner: %w", err)
	}
	return nil
}

func (s *Store) dimensions(target string) (int, int, error) {
	f, err := s.fs.Open(target)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
