package storage

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"microcredit/core/ingest"
	"microcredit/internal/errors"
)

// ReadCSV reads a CSV file with a header row
func ReadCSV(path string) (*ingest.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to open %s", path)
	}
	defer f.Close()

	raw, err := DecodeCSV(f)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeParsing, err, "failed to read %s", path)
	}
	return raw, nil
}

// DecodeCSV reads a header row and every record from r
func DecodeCSV(r io.Reader) (*ingest.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return &ingest.RawTable{}, nil
	}
	if err != nil {
		return nil, err
	}
	// strip a UTF-8 BOM left by spreadsheet exports
	if len(header) > 0 && len(header[0]) >= 3 && header[0][:3] == "\xef\xbb\xbf" {
		header[0] = header[0][3:]
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return &ingest.RawTable{Header: header, Records: records}, nil
}

// WriteCSV writes a raw table, creating parent directories
func WriteCSV(path string, raw *ingest.RawTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Storage("failed to create output directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Storage("failed to create csv", err)
	}
	defer f.Close()

	if err := EncodeCSV(f, raw); err != nil {
		return errors.Storage("failed to write "+filepath.Base(path), err)
	}
	return f.Close()
}

// EncodeCSV writes the header and records of raw to w
func EncodeCSV(w io.Writer, raw *ingest.RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(raw.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(raw.Records); err != nil {
		return err
	}
	return cw.Error()
}
