package sky

import (
	"fmt"
	"os"
)

// writeFile replaces path with data. The bytes go to path+".tmp" first and
// are renamed over path only once fully written, so a crash never leaves a
// partial file under the canonical name. A stale .tmp from an earlier crash
// is simply overwritten.
func writeFile(path string, data []byte, sync bool) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %w", ErrIO, tmp, err)
	}
	if sync {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("%w: sync %s: %w", ErrIO, tmp, err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %w", ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrIO, path, err)
	}
	return nil
}

// exists reports whether path exists. Any stat error other than "not
// exist" is returned so callers don't mistake a permission problem for an
// empty object file.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
}
