// Package io loads the offers store and writes it back.
package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/geniass/offers-updater/pkg/offers"
)

var ErrStoreNotFound = errors.New("offers store not found")

// Load reads the JSON array of offers at path. A missing file yields an
// error matching both ErrStoreNotFound and fs.ErrNotExist.
func Load(path string) ([]*offers.Offer, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreNotFound, path, err)
	} else if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	list := make([]*offers.Offer, 0, len(raw))
	for i, r := range raw {
		var o offers.Offer
		if err := o.UnmarshalJSON(r); err != nil {
			return nil, fmt.Errorf("decoding %s: offer %d: %w", path, i, err)
		}
		list = append(list, &o)
	}
	return list, nil
}

// Flush writes all offers back to path when anyChanged is set and does
// nothing otherwise. The file is replaced atomically: readers see either the
// old or the new content, never a truncated store.
func Flush(path string, list []*offers.Offer, anyChanged bool) error {
	if !anyChanged {
		return nil
	}

	data, err := Encode(list)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Encode renders offers as a two-space indented JSON array with a trailing
// newline. Non-ASCII and HTML characters are written as is.
func Encode(list []*offers.Offer) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, o := range list {
		if i > 0 {
			compact.WriteByte(',')
		}
		b, err := o.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding offer %d: %w", i, err)
		}
		compact.Write(b)
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("encoding offers: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	perm := fs.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err = f.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", f.Name(), err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", f.Name(), err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
