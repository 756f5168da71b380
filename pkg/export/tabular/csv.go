package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// handle is the subset of *os.File the csv appender writes through.
type handle interface {
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
}

// csvAppender keeps the temporary file open for the life of the export.
type csvAppender struct {
	file      handle
	delimiter rune
	size      int64
}

func newCSVAppender(dir string, delimiter rune) (string, appender, error) {
	file, err := os.CreateTemp(dir, "tabula-*.csv")
	if err != nil {
		return "", nil, err
	}
	return file.Name(), &csvAppender{file: file, delimiter: delimiter}, nil
}

func (a *csvAppender) writeHeader(headers []string) error {
	return a.appendRows([][]string{headers})
}

// appendRows renders all records in memory and writes them with a single
// call. A failed write truncates the file back to its previous size.
func (a *csvAppender) appendRows(records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = a.delimiter
	if err := w.WriteAll(records); err != nil {
		return err
	}

	n, err := a.file.WriteAt(buf.Bytes(), a.size)
	if err != nil || n != buf.Len() {
		if truncErr := a.file.Truncate(a.size); truncErr != nil {
			return fmt.Errorf("append failed (%v) and truncate failed: %w", err, truncErr)
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		return err
	}
	a.size += int64(n)
	return nil
}

func (a *csvAppender) finish() error {
	return a.file.Sync()
}

func (a *csvAppender) close() error {
	return a.file.Close()
}
