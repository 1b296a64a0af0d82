// Copyright 2025 Juan Font
// BSD-3-Clause

package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	// ErrNoSource is returned when the file to back up does not exist.
	ErrNoSource = errors.New("nothing to back up")
	// ErrInvalidLimit is returned by Rotate when Limit is below one.
	ErrInvalidLimit = errors.New("backup limit must be at least 1")
)

// Order decides which backup is considered the oldest.
type Order int

const (
	// ByName treats the lexically smallest name as the oldest. Works for
	// zero-padded timestamps such as cred_20250101120000.json.
	ByName Order = iota
	// ByModTime treats the least recently modified file as the oldest.
	ByModTime
)

// Namer picks the file name of the next backup given the names that are
// still present after eviction.
type Namer func(existing []string, now time.Time) string

// Timestamped names backups <prefix><YYYYmmddHHMMSS>.json.
func Timestamped(prefix string) Namer {
	return func(_ []string, now time.Time) string {
		return fmt.Sprintf("%s%s.json", prefix, now.Format("20060102150405"))
	}
}

// Sequential names backups <prefix><n>.json where n is one past the highest
// index still present, so a live backup is never overwritten.
func Sequential(prefix string) Namer {
	return func(existing []string, _ time.Time) string {
		highest := 0
		for _, name := range existing {
			idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
			if err == nil && idx > highest {
				highest = idx
			}
		}
		return fmt.Sprintf("%s%d.json", prefix, highest+1)
	}
}

// Rotator keeps at most Limit backups whose names start with Prefix in Dir.
type Rotator struct {
	Fs     afero.Fs
	Dir    string
	Prefix string
	Limit  int
	Order  Order
	Name   Namer
	Now    func() time.Time
}

func (r *Rotator) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// List returns the backups in Dir oldest first.
func (r *Rotator) List() ([]string, error) {
	entries, err := afero.ReadDir(r.Fs, r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list backups in %s", r.Dir)
	}

	var files []os.FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), r.Prefix) {
			continue
		}
		files = append(files, e)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if r.Order == ByModTime && !files[i].ModTime().Equal(files[j].ModTime()) {
			return files[i].ModTime().Before(files[j].ModTime())
		}
		return files[i].Name() < files[j].Name()
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name()
	}
	return names, nil
}

// Rotate evicts the oldest backups until there is room for one more, then
// copies src into Dir. It returns the path of the new backup.
func (r *Rotator) Rotate(src string) (string, error) {
	if r.Limit < 1 {
		return "", errors.Wrapf(ErrInvalidLimit, "got %d", r.Limit)
	}
	if _, err := r.Fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrNoSource, "%s", src)
		}
		return "", errors.Wrapf(err, "stat %s", src)
	}

	if err := r.Fs.MkdirAll(r.Dir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create backup directory %s", r.Dir)
	}

	existing, err := r.List()
	if err != nil {
		return "", err
	}

	for len(existing) >= r.Limit {
		oldest := filepath.Join(r.Dir, existing[0])
		log.Debug().Str("path", oldest).Msg("removing oldest backup")
		if err := r.Fs.Remove(oldest); err != nil {
			return "", errors.Wrapf(err, "remove backup %s", oldest)
		}
		existing = existing[1:]
	}

	namer := r.Name
	if namer == nil {
		namer = Timestamped(r.Prefix)
	}
	now := r.now()
	dst := filepath.Join(r.Dir, namer(existing, now))

	if err := CopyFile(r.Fs, src, dst); err != nil {
		return "", err
	}
	if err := r.Fs.Chtimes(dst, now, now); err != nil {
		return "", errors.Wrapf(err, "touch %s", dst)
	}
	return dst, nil
}

// CopyFile copies src over dst, creating dst's directory.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNoSource, "%s", src)
		}
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", dst)
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s to %s", src, dst)
	}
	return errors.Wrapf(out.Close(), "close %s", dst)
}
