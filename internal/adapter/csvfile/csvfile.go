package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dupindex/internal/domain"
)

const DefaultName = "index"

// ErrCRLFInField is returned for values holding a CR LF pair. CSV readers
// fold it into a bare LF, so the value would not read back unchanged.
var ErrCRLFInField = errors.New("field contains CR LF")

// Rower is anything that can be exported as one CSV row.
type Rower interface {
	Row() []string
}

// Encode writes a header row followed by one row per item.
func Encode[T Rower](w io.Writer, header []string, rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range rows {
		row := r.Row()
		for j, field := range row {
			if strings.Contains(field, "\r\n") {
				return fmt.Errorf("row %d column %d: %w", i+1, j+1, ErrCRLFInField)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Writer exports record sets as <dir>/<name>.csv.
type Writer struct {
	dir string
	log logrus.FieldLogger
}

func NewWriter(dir string, log logrus.FieldLogger) *Writer {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Writer{dir: dir, log: log}
}

// Path returns the file a given export name maps to.
func (w *Writer) Path(name string) string {
	if name == "" {
		name = DefaultName
	}
	return filepath.Join(w.dir, name+".csv")
}

// WriteRecords writes records atomically: the data goes to a temporary file
// in the target directory which is renamed into place only after a
// successful flush, so a failed export never leaves a partial file.
func (w *Writer) WriteRecords(records []domain.FileRecord, name string) (string, error) {
	path := w.Path(name)
	if strings.ContainsAny(name, `/\`) {
		return "", &domain.WriteError{Path: path, Err: fmt.Errorf("name %q must not contain a path separator", name)}
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", &domain.WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(w.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", &domain.WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, domain.RecordColumns, records); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &domain.WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &domain.WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", &domain.WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", &domain.WriteError{Path: path, Err: err}
	}

	w.log.WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
	}).Info("export written")
	return path, nil
}

// ReadRecords parses a file produced by WriteRecords.
func ReadRecords(r io.Reader) ([]domain.FileRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.RecordColumns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, err
	}
	for i, col := range domain.RecordColumns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: want %q, got %q", i, col, header[i])
		}
	}

	records := []domain.FileRecord{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		size, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: size: %w", len(records)+1, err)
		}
		modTime, err := time.Parse(domain.TimeLayout, row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: modified_time: %w", len(records)+1, err)
		}

		records = append(records, domain.FileRecord{
			Path:        row[0],
			Name:        row[1],
			Size:        size,
			Fingerprint: row[3],
			ModTime:     modTime,
			Extension:   row[5],
			Type:        row[6],
		})
	}
	return records, nil
}

// ReadFile parses the export at path.
func ReadFile(path string) ([]domain.FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}
