// Package store keeps a package of assets in a directory, one document per
// asset. The location of an asset is its file path relative to the
// directory, slash separated and without extension.
//
// Access is guarded by a lock file so that several processes can share a
// directory; documents are written to a temporary file and renamed into
// place.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/serializer"
	"github.com/gofrs/flock"
)

// LockFile is the name of the lock file created inside the directory.
const LockFile = ".assetyaml.lock"

// DefaultExtension is the file extension of asset documents.
const DefaultExtension = ".yaml"

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// ErrNotDirectory is returned by Open when the path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Options configure a Store.
type Options struct {
	// Serializer is used to read and write typed assets.
	Serializer serializer.Options
	// Extension of asset documents. Defaults to DefaultExtension.
	Extension string
	// Dynamic loads every document as an asset.Dynamic instead of a typed
	// asset.
	Dynamic bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Diagnostic is a loader diagnostic together with the asset it belongs to.
type Diagnostic struct {
	Location string
	serializer.Diagnostic
}

func (d Diagnostic) String() string {
	return d.Location + ": " + d.Diagnostic.String()
}

// Store reads and writes one package directory.
type Store struct {
	dir      string
	opts     Options
	fileLock *flock.Flock
	// references remembers where each loaded typed asset had back-references
	// so that saving keeps them there.
	references map[*asset.Item]serializer.References
	// locations holds the location each item was last read from or written
	// to, so that a relocated item does not leave its old document behind.
	locations map[*asset.Item]string
}

// Open returns a store over dir, which must exist.
func Open(dir string, opts Options) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		dir:        dir,
		opts:       opts,
		fileLock:   flock.New(filepath.Join(dir, LockFile)),
		references: make(map[*asset.Item]serializer.References),
		locations:  make(map[*asset.Item]string),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path of location.
func (s *Store) Path(location string) string {
	return filepath.Join(s.dir, filepath.FromSlash(location)+s.opts.Extension)
}

// acquireLock attempts to acquire an exclusive file lock with retry logic
func (s *Store) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()
	return fn()
}

// Load reads every document of the directory into a package named after the
// directory. Items whose id is already taken by an earlier item are put in
// TemporaryAssets, for collision.ValidateAssets to renumber.
//
// Documents whose root type is unknown are loaded as asset.Dynamic. A
// document that cannot be parsed fails the load.
func (s *Store) Load(ctx context.Context) (*asset.Package, []Diagnostic, error) {
	pkg := asset.NewPackage(filepath.Base(s.dir))
	var diags []Diagnostic

	err := s.withLock(ctx, func() error {
		return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), s.opts.Extension) {
				return nil
			}
			rel, err := filepath.Rel(s.dir, path)
			if err != nil {
				return err
			}
			location := filepath.ToSlash(strings.TrimSuffix(rel, s.opts.Extension))

			item, found, err := s.loadItem(path, location)
			if err != nil {
				return err
			}
			diags = append(diags, found...)
			s.locations[item] = location

			if err := pkg.Add(item); err != nil {
				if !errors.Is(err, asset.ErrDuplicateID) {
					return err
				}
				s.opts.Logger.Debug("duplicate asset id", "location", location, "id", item.ID().String())
				pkg.TemporaryAssets = append(pkg.TemporaryAssets, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, diags, err
	}

	s.opts.Logger.Debug("package loaded",
		"dir", s.dir,
		"assets", pkg.Len(),
		"temporary", len(pkg.TemporaryAssets),
		"diagnostics", len(diags))
	return pkg, diags, nil
}

func (s *Store) loadItem(path, location string) (*asset.Item, []Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	if s.opts.Dynamic {
		d, err := asset.ParseDynamic(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", location, err)
		}
		return asset.NewItem(location, d), nil, nil
	}

	res, err := serializer.Deserialize(bytes.NewReader(data), s.opts.Serializer)
	var diags []Diagnostic
	if res != nil {
		for _, d := range res.Diagnostics {
			diags = append(diags, Diagnostic{Location: location, Diagnostic: d})
		}
	}
	if err != nil {
		return nil, diags, fmt.Errorf("%s: %w", location, err)
	}

	var a asset.Asset
	switch v := res.Value.(type) {
	case asset.Asset:
		a = v
	case *placeholder.Unloadable:
		d, err := asset.ParseDynamic(data)
		if err != nil {
			return nil, diags, fmt.Errorf("%s: %w", location, err)
		}
		a = d
	default:
		return nil, diags, fmt.Errorf("%s: %T is not an asset", location, res.Value)
	}

	item := asset.NewItem(location, a)
	item.Dirty = res.Dirty
	if len(res.References) > 0 {
		s.references[item] = res.References
	}
	return item, diags, nil
}

// Save writes the dirty items of pkg and clears their dirty flag. The
// document an item was loaded from is removed when the item moved to another
// location, unless another item of pkg now lives there. It returns the number
// of documents written.
func (s *Store) Save(ctx context.Context, pkg *asset.Package) (int, error) {
	written := 0
	err := s.withLock(ctx, func() error {
		for _, item := range pkg.Items() {
			if !item.Dirty {
				continue
			}
			data, err := s.Encode(item)
			if err != nil {
				return err
			}
			if err := WriteFile(s.Path(item.Location), data); err != nil {
				return err
			}
			if err := s.removeStale(pkg, item); err != nil {
				return err
			}
			s.locations[item] = item.Location
			item.Dirty = false
			written++
		}
		return nil
	})
	s.opts.Logger.Debug("package saved", "dir", s.dir, "written", written)
	return written, err
}

// Moved returns the location item was loaded from when it has been relocated
// since, and whether it was.
func (s *Store) Moved(item *asset.Item) (string, bool) {
	old, ok := s.locations[item]
	if !ok || old == item.Location {
		return "", false
	}
	return old, true
}

func (s *Store) removeStale(pkg *asset.Package, item *asset.Item) error {
	old, moved := s.Moved(item)
	if !moved || pkg.ContainsLocation(old) {
		return nil
	}
	if err := os.Remove(s.Path(old)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove relocated document: %w", err)
	}
	s.opts.Logger.Debug("removed relocated document", "old", old, "new", item.Location)
	return nil
}

// Encode returns the document text of item.
func (s *Store) Encode(item *asset.Item) ([]byte, error) {
	if d, ok := item.Asset.(*asset.Dynamic); ok {
		return d.Document().Bytes(), nil
	}
	opts := s.opts.Serializer
	opts.References = s.references[item]
	data, err := serializer.Marshal(item.Asset, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", item.Location, err)
	}
	return data, nil
}

// WriteFile writes data to a temporary file next to path and renames it into
// place, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Close removes the lock file.
func (s *Store) Close() error {
	_ = os.Remove(filepath.Join(s.dir, LockFile))
	return nil
}
