package assets

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vango-dev/ssrdoc/internal/errors"
)

// Dir returns the build output directory at path as an fs.FS.
// It fails when the directory does not exist, so a misconfigured build
// location is reported at startup rather than on the first manifest read.
func Dir(path string) (fs.FS, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New("E005").Wrap(err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.New("E005").Wrap(err)
	}
	if !info.IsDir() {
		return nil, errors.New("E005").WithDetail(abs + " is not a directory.")
	}

	return os.DirFS(abs), nil
}
