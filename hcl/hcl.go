// Copyright 2025 Juan Font
// BSD-3-Clause

// Package hcl keeps a custom vSAN hardware compatibility list current: it
// copies the operator's list into place, stamps it with the publication time
// of the vendor list and optionally pushes it to vCenter.
package hcl

import (
	"path/filepath"

	"github.com/juanfont/pgvm/backup"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	DefaultURL    = "https://partnerweb.vmware.com/service/vsan/all.json"
	DefaultSource = "customhcl"
	DefaultDest   = "json/customhcl.json"
	DefaultBackup = "json/backup/customhcl_backup.json"

	TimestampKey   = "timestamp"
	UpdatedTimeKey = "jsonUpdatedTime"
)

var (
	ErrSourceMissing = errors.New("source hcl file does not exist")
	ErrHCLMissing    = errors.New("hcl file does not exist")
	ErrMissingStamp  = errors.New("missing `timestamp` or `jsonUpdatedTime`")
)

// Stamp is the publication time of the vendor list. Values keep the exact
// JSON spelling of the vendor document.
type Stamp struct {
	Timestamp   interface{}
	UpdatedTime interface{}
}

// Diff records what Splice changed.
type Diff struct {
	OldTimestamp   interface{}
	NewTimestamp   interface{}
	OldUpdatedTime interface{}
	NewUpdatedTime interface{}
}

// Prepare copies src to dst, creating dst's directory.
func Prepare(fs afero.Fs, src, dst string) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "create destination directory for %s", dst)
	}
	exists, err := afero.Exists(fs, src)
	if err != nil {
		return errors.Wrapf(err, "stat %s", src)
	}
	if !exists {
		return errors.Wrapf(ErrSourceMissing, "%s", src)
	}

	log.Info().Str("from", src).Str("to", dst).Msg("copying hcl file")
	return backup.CopyFile(fs, src, dst)
}

// Backup copies path to dst, replacing the previous backup. A missing path is
// logged and skipped.
func Backup(fs afero.Fs, path, dst string) error {
	err := backup.CopyFile(fs, path, dst)
	if errors.Is(err, backup.ErrNoSource) {
		log.Warn().Str("path", path).Msg("file does not exist, cannot create backup")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("from", path).Str("to", dst).Msg("backed up hcl file")
	return nil
}

// Splice replaces the two stamp fields of the document at path, keeping
// every other key and the key order. Nothing is written when dryRun is set.
func Splice(fs afero.Fs, path string, stamp *Stamp, dryRun bool) (*Diff, error) {
	doc, err := jsondoc.ReadObject(fs, path)
	if err != nil {
		if jsondoc.IsNotExist(err) {
			return nil, errors.Wrapf(ErrHCLMissing, "%s", path)
		}
		return nil, errors.Wrap(err, "error updating JSON file")
	}

	diff := &Diff{
		NewTimestamp:   stamp.Timestamp,
		NewUpdatedTime: stamp.UpdatedTime,
	}
	diff.OldTimestamp, _ = doc.Get(TimestampKey)
	diff.OldUpdatedTime, _ = doc.Get(UpdatedTimeKey)

	doc.Set(TimestampKey, stamp.Timestamp)
	doc.Set(UpdatedTimeKey, stamp.UpdatedTime)

	if dryRun {
		return diff, nil
	}
	if err := jsondoc.WriteFile(fs, path, doc); err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("file successfully updated")
	return diff, nil
}
