package upload

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/lamim/irida-prep/pkg/models"
)

// indexFiles maps base names to paths for every file under dir, keeping the
// shallowest path when a name repeats
func indexFiles(dir string) (map[string]string, error) {
	index := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, seen := index[d.Name()]; !seen {
			index[d.Name()] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", dir, err)
	}
	return index, nil
}

// locateFiles resolves the files of every row, in row order, failing with the
// full list of missing names
func locateFiles(dir string, rows []models.ManifestRow) ([][]string, error) {
	index, err := indexFiles(dir)
	if err != nil {
		return nil, err
	}

	located := make([][]string, len(rows))
	var missing []string
	for i, row := range rows {
		for _, name := range row.Files() {
			path, ok := index[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			located[i] = append(located[i], path)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("files listed in the sample list are missing: %s", strings.Join(missing, ", "))
	}
	return located, nil
}

// verifyGzip decompresses path to the end so truncated transfers are caught before upload
func verifyGzip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s is not a valid gzip file: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	if _, err := io.Copy(io.Discard, zr); err != nil {
		return fmt.Errorf("%s is corrupt: %w", filepath.Base(path), err)
	}
	return nil
}
