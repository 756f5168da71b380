package tabular

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

var errFinished = errors.New("workbook already saved")

// xlsxAppender streams rows into one workbook kept open for the life of
// the export. The stream writer buffers rows in memory up to
// excelize.StreamChunkSize and spills the rest to a temporary file, so
// memory does not grow with the row count. The workbook is written to
// path only by finish.
type xlsxAppender struct {
	path     string
	wb       *excelize.File
	sw       *excelize.StreamWriter
	next     int // next 1-based row number
	finished bool
}

func newXLSXAppender(dir string) (string, appender, error) {
	tmp, err := os.CreateTemp(dir, "tabula-*.xlsx")
	if err != nil {
		return "", nil, err
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}

	wb := excelize.NewFile(excelize.Options{TmpDir: dir})
	sw, err := wb.NewStreamWriter(wb.GetSheetName(0))
	if err != nil {
		wb.Close()
		os.Remove(path)
		return "", nil, err
	}
	return path, &xlsxAppender{path: path, wb: wb, sw: sw, next: 1}, nil
}

func (a *xlsxAppender) writeHeader(headers []string) error {
	return a.appendRows([][]string{headers})
}

// appendRows checks the sheet row limit before writing, so a rejected
// batch leaves the sheet unchanged.
func (a *xlsxAppender) appendRows(records [][]string) error {
	if a.finished {
		return errFinished
	}
	if last := a.next + len(records) - 1; last > excelize.TotalRows {
		return fmt.Errorf("sheet row limit %d exceeded (row %d)", excelize.TotalRows, last)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, a.next+i)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := a.sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	a.next += len(records)
	return nil
}

// finish flushes the stream and writes the workbook to path once.
func (a *xlsxAppender) finish() error {
	if a.finished {
		return nil
	}
	if err := a.sw.Flush(); err != nil {
		return err
	}
	if err := a.wb.SaveAs(a.path); err != nil {
		return err
	}
	a.finished = true
	return nil
}

// close releases the workbook and its spill files.
func (a *xlsxAppender) close() error {
	return a.wb.Close()
}
