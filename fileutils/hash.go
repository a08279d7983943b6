package fileutils

import (
	"errors"
	"io"
	"os"

	"github.com/cespare/xxhash"
)

// ComputeFileHash returns the xxhash of the file contents at path.
func ComputeFileHash(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	hash := xxhash.New()
	_, err = io.Copy(hash, file)

	err = errors.Join(err, file.Close())
	if err != nil {
		return 0, err
	}

	return hash.Sum64(), nil
}
