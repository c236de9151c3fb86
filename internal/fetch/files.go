package fetch

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// Remove deletes the file at path. A file already removed by another
// cleanup path (for example the retention sweep) is a no-op, not an
// error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ReadPrefix reads at most maxBytes from the file at path. maxBytes
// <= 0 reads the whole file.
func ReadPrefix(path string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return os.ReadFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := io.ReadAll(&io.LimitedReader{R: f, N: maxBytes})
	if err != nil {
		return nil, err
	}
	return data, nil
}
