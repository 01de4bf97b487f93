package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
)

type snapshotFile struct {
	file   afero.File
	writer *bufio.Writer
	path   string
}

func newFile(fs afero.Fs, path string) (*snapshotFile, error) {
	if err := fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create dst dir %v: %w", filepath.Dir(path), err)
	}
	tmpf, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w: create tmp file", err)
	}
	return &snapshotFile{
		file:   tmpf,
		writer: bufio.NewWriter(tmpf),
		path:   path,
	}, nil
}

func (sf *snapshotFile) save(fs afero.Fs) error {
	defer sf.file.Close()
	if err := sf.writer.Flush(); err != nil {
		return fmt.Errorf("flush tmp file: %w", err)
	}
	if err := sf.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync tmp file", err)
	}
	if err := sf.file.Close(); err != nil {
		return fmt.Errorf("%w: close tmp file", err)
	}
	if err := fs.Rename(sf.file.Name(), sf.path); err != nil {
		return fmt.Errorf("%w: rename tmp file %v to %v", err, sf.file.Name(), sf.path)
	}
	return nil
}

// ValidateSchema checks the snapshot data against the embedded json schema.
func ValidateSchema(data []byte) error {
	sch, err := jsonschema.CompileString(schemaFile, Schema)
	if err != nil {
		return fmt.Errorf("compile snapshot json schema: %w", err)
	}
	var v any
	if err = json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	if err = sch.Validate(v); err != nil {
		return fmt.Errorf("validate snapshot data: %w", err)
	}
	return nil
}
