// Copyright 2025 Juan Font
// BSD-3-Clause

// Package profile stores one credential set per named directory under the
// profile root (~/.pgvm/ by default):
//
//	~/.pgvm/
//	  cred.json              default credentials
//	  lab01/
//	    cred.json
//	    backup/
//	      cred_20250102150405.json
package profile

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/juanfont/pgvm/backup"
	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	DefaultRoot       = "~/.pgvm/"
	CredFileName      = "cred.json"
	BackupDirName     = "backup"
	BackupPrefix      = "cred_"
	DefaultMaxBackups = 10
)

var (
	ErrCredNotFound          = errors.New("credentials file not found")
	ErrInvalidName           = errors.New("invalid profile name")
	ErrIncompleteCredentials = errors.New("incomplete credentials")
)

type Store struct {
	fs         afero.Fs
	root       string
	maxBackups int
	now        func() time.Time
}

// NewStore opens the profile root. A leading ~ is expanded to the user's
// home directory.
func NewStore(fs afero.Fs, root string, maxBackups int) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, errors.Wrapf(err, "expand profile root %s", root)
	}
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}
	if maxBackups < 0 {
		return nil, errors.Wrapf(backup.ErrInvalidLimit, "got %d", maxBackups)
	}
	return &Store{
		fs:         fs,
		root:       filepath.Clean(expanded),
		maxBackups: maxBackups,
		now:        time.Now,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

// List returns the profile directory names, sorted.
func (s *Store) List() ([]string, error) {
	if err := s.fs.MkdirAll(s.root, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create profile root %s", s.root)
	}
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "list profiles in %s", s.root)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != BackupDirName {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == BackupDirName ||
		strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// Create makes the profile directory and returns its path. Creating an
// existing profile is not an error.
func (s *Store) Create(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := s.Dir(name)
	if err := s.fs.MkdirAll(path, 0o700); err != nil {
		return "", errors.Wrapf(err, "create profile %s", name)
	}
	return path, nil
}

// Dir is the directory of a profile; the empty name is the root itself.
func (s *Store) Dir(name string) string {
	if name == "" {
		return s.root
	}
	return filepath.Join(s.root, name)
}

func (s *Store) CredPath(name string) string {
	return filepath.Join(s.Dir(name), CredFileName)
}

func (s *Store) Exists(name string) (bool, error) {
	return afero.DirExists(s.fs, s.Dir(name))
}

func (s *Store) Load(name string) (*jsondoc.Object, error) {
	path := s.CredPath(name)
	doc, err := jsondoc.ReadObject(s.fs, path)
	if err != nil {
		if jsondoc.IsNotExist(err) {
			return nil, errors.Wrapf(ErrCredNotFound, "%s", path)
		}
		return nil, err
	}
	return doc, nil
}

func (s *Store) Save(name string, doc *jsondoc.Object) error {
	path := s.CredPath(name)
	if err := jsondoc.WriteFile(s.fs, path, doc); err != nil {
		return err
	}
	log.Debug().Str("path", path).Msg("saved credentials")
	return nil
}

// Backup copies the current cred.json into the profile's backup directory,
// keeping at most maxBackups copies. It returns "" when there is nothing to
// back up.
func (s *Store) Backup(name string) (string, error) {
	r := &backup.Rotator{
		Fs:     s.fs,
		Dir:    filepath.Join(s.Dir(name), BackupDirName),
		Prefix: BackupPrefix,
		Limit:  s.maxBackups,
		Order:  backup.ByName,
		Name:   backup.Timestamped(BackupPrefix),
		Now:    s.now,
	}
	path, err := r.Rotate(s.CredPath(name))
	if errors.Is(err, backup.ErrNoSource) {
		return "", nil
	}
	return path, err
}

// VCenter returns the vcenter section of a profile as connection settings.
func (s *Store) VCenter(name string) (*driver.ConnectConfig, error) {
	doc, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return VCenterConfig(doc)
}

// VCenterConfig reads vcenter.VCENTER_SERVER, VCENTER_USER and
// VCENTER_PASSWORD. All three must be set.
func VCenterConfig(doc *jsondoc.Object) (*driver.ConnectConfig, error) {
	section, ok := doc.Object("vcenter")
	if !ok {
		return nil, errors.Wrap(ErrIncompleteCredentials, "missing vcenter section")
	}

	var missing []string
	field := func(key string) string {
		v, _ := section.String(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	config := &driver.ConnectConfig{
		Host:               field("VCENTER_SERVER"),
		Username:           field("VCENTER_USER"),
		Password:           field("VCENTER_PASSWORD"),
		InsecureConnection: true,
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrIncompleteCredentials, "vcenter: missing %s", strings.Join(missing, ", "))
	}
	return config, nil
}

// VCDCredentials is the optional vcd section of a profile.
type VCDCredentials struct {
	driver.ConnectConfig
	VDC string
}

// VCD returns the vcd section of a profile. Fields that are absent are left
// empty so the caller can fill them from the environment.
func (s *Store) VCD(name string) (*VCDCredentials, error) {
	doc, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return VCDConfig(doc), nil
}

func VCDConfig(doc *jsondoc.Object) *VCDCredentials {
	creds := &VCDCredentials{}
	section, ok := doc.Object("vcd")
	if !ok {
		return creds
	}
	creds.Host, _ = section.String("VCD_HOST")
	creds.Org, _ = section.String("VCD_ORG")
	creds.Username, _ = section.String("VCD_USER")
	creds.Password, _ = section.String("VCD_PASSWORD")
	creds.Token, _ = section.String("VCD_TOKEN")
	creds.VDC, _ = section.String("VCD_VDC")
	insecure, _ := section.String("VCD_INSECURE")
	creds.InsecureConnection = strings.EqualFold(insecure, "true")
	return creds
}

// BaseStructurePath is where a script keeps the skeleton of the credentials
// it needs: <scriptsDir>/scripts/<script>/<script>-cred.json.
func BaseStructurePath(scriptsDir, script string) string {
	return filepath.Join(scriptsDir, "scripts", script, script+"-cred.json")
}

// IsSecretKey reports whether a credential key holds a secret.
func IsSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range []string{"PASSWORD", "SECRET", "TOKEN"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// Mask returns a copy of doc with every non-empty secret replaced.
func Mask(doc *jsondoc.Object) *jsondoc.Object {
	out := doc.Clone()
	maskObject(out)
	return out
}

func maskObject(obj *jsondoc.Object) {
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		switch t := v.(type) {
		case *jsondoc.Object:
			maskObject(t)
		case []interface{}:
			for _, item := range t {
				if sub, ok := item.(*jsondoc.Object); ok {
					maskObject(sub)
				}
			}
		case string:
			if t != "" && IsSecretKey(key) {
				obj.Set(key, "********")
			}
		}
	}
}
