package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"mercator-hq/tabula/pkg/export"
)

func row(values ...string) export.Row {
	r := make(export.Row, len(values))
	for i, v := range values {
		if v == "<missing>" {
			r[i] = export.Missing
			continue
		}
		r[i] = export.Text(v)
	}
	return r
}

func readCSV(t *testing.T, f *File, delimiter rune) [][]string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = delimiter
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	return records
}

func TestCSV_HeaderThenBatches(t *testing.T) {
	f, err := Create(t.TempDir(), []string{"name", "price"}, export.FileCSV, ',')
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	if data, err := os.ReadFile(f.Path()); err != nil || string(data) != "name,price\n" {
		t.Fatalf("new file = %q (%v), want header only", data, err)
	}

	if err := f.Append([]export.Row{row("a", "1.00"), row("b, quoted", "<missing>")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := f.Append([]export.Row{row("c", "3.00")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	want := [][]string{
		{"name", "price"},
		{"a", "1.00"},
		{"b, quoted", " "},
		{"c", "3.00"},
	}
	if diff := cmp.Diff(want, readCSV(t, f, ',')); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
	if f.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", f.Rows())
	}
}

func TestCSV_Delimiter(t *testing.T) {
	f, err := Create(t.TempDir(), []string{"a", "b"}, export.FileCSV, ';')
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	if err := f.Append([]export.Row{row("1", "2")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	rc, _ := f.Open()
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if got, want := string(data), "a;b\n1;2\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	if _, err := Create(t.TempDir(), nil, export.FileCSV, ','); err == nil {
		t.Error("expected error for missing headers")
	}
	if _, err := Create(t.TempDir(), []string{"a"}, export.FileCSV, '"'); err == nil {
		t.Error("expected error for quote delimiter")
	}
	if _, err := Create(t.TempDir(), []string{"a"}, "pdf", ','); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := Create("/nonexistent/dir", []string{"a"}, export.FileCSV, ','); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestAppend_RejectsWrongWidthAtomically(t *testing.T) {
	for _, format := range []export.FileType{export.FileCSV, export.FileXLSX} {
		t.Run(string(format), func(t *testing.T) {
			f, err := Create(t.TempDir(), []string{"a", "b"}, format, ',')
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			defer f.Close()

			before, _ := f.Size()
			err = f.Append([]export.Row{row("1", "2"), row("only one")})
			var we *WriteError
			if !errors.As(err, &we) {
				t.Fatalf("Append() = %v, want *WriteError", err)
			}
			after, _ := f.Size()
			if before != after || f.Rows() != 0 {
				t.Errorf("failed append changed the file: size %d -> %d, rows %d", before, after, f.Rows())
			}
		})
	}
}

func TestClose_RemovesFileAndIsIdempotent(t *testing.T) {
	for _, format := range []export.FileType{export.FileCSV, export.FileXLSX} {
		t.Run(string(format), func(t *testing.T) {
			f, err := Create(t.TempDir(), []string{"a"}, format, ',')
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			path := f.Path()

			if err := f.Close(); err != nil {
				t.Fatalf("Close() failed: %v", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("temporary file still exists: %v", err)
			}
			if err := f.Close(); err != nil {
				t.Errorf("second Close() = %v", err)
			}
			if err := f.Append([]export.Row{row("x")}); !errors.Is(err, ErrClosed) {
				t.Errorf("Append() after Close = %v, want ErrClosed", err)
			}
			if _, err := f.Open(); !errors.Is(err, ErrClosed) {
				t.Errorf("Open() after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestXLSX_HeaderThenBatches(t *testing.T) {
	f, err := Create(t.TempDir(), []string{"number", "address"}, export.FileXLSX, ',')
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	if err := f.Append([]export.Row{row("1001", "1 Main St, Cape Town, ZA")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := f.Append([]export.Row{row("1002", "No Shipping Address"), row("1003", "<missing>")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer rc.Close()

	wb, err := excelize.OpenReader(rc)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer wb.Close()

	got, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	want := [][]string{
		{"number", "address"},
		{"1001", "1 Main St, Cape Town, ZA"},
		{"1002", "No Shipping Address"},
		{"1003", " "},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("workbook mismatch (-want +got):\n%s", diff)
	}
}

// shortWriter writes the first limit bytes of the next write, then fails.
type shortWriter struct {
	handle
	limit int
	fail  bool
}

func (w *shortWriter) WriteAt(p []byte, off int64) (int, error) {
	if !w.fail {
		return w.handle.WriteAt(p, off)
	}
	w.fail = false
	n, err := w.handle.WriteAt(p[:w.limit], off)
	if err != nil {
		return n, err
	}
	return n, errors.New("no space left on device")
}

func TestCSV_FailedAppendKeepsEarlierRows(t *testing.T) {
	f, err := Create(t.TempDir(), []string{"name", "price"}, export.FileCSV, ',')
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	if err := f.Append([]export.Row{row("a", "1.00"), row("b", "2.00")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	a := f.w.(*csvAppender)
	w := &shortWriter{handle: a.file, limit: 4, fail: true}
	a.file = w

	err = f.Append([]export.Row{row("c", "3.00"), row("d", "4.00")})
	var we *WriteError
	if !errors.As(err, &we) || we.Operation != "append" {
		t.Fatalf("Append() = %v, want append *WriteError", err)
	}
	if f.Rows() != 2 {
		t.Errorf("Rows() = %d after failed append, want 2", f.Rows())
	}

	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "name,price\na,1.00\nb,2.00\n"; got != want {
		t.Errorf("file after failed append = %q, want %q", got, want)
	}

	if err := f.Append([]export.Row{row("e", "5.00")}); err != nil {
		t.Fatalf("Append() after recovery failed: %v", err)
	}
	want := [][]string{{"name", "price"}, {"a", "1.00"}, {"b", "2.00"}, {"e", "5.00"}}
	if diff := cmp.Diff(want, readCSV(t, f, ',')); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
}

func TestFinish_RejectsAppend(t *testing.T) {
	for _, format := range []export.FileType{export.FileCSV, export.FileXLSX} {
		t.Run(string(format), func(t *testing.T) {
			f, err := Create(t.TempDir(), []string{"a"}, format, ',')
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			defer f.Close()

			if err := f.Append([]export.Row{row("1")}); err != nil {
				t.Fatalf("Append() failed: %v", err)
			}
			if err := f.Finish(); err != nil {
				t.Fatalf("Finish() failed: %v", err)
			}
			if err := f.Finish(); err != nil {
				t.Errorf("second Finish() = %v", err)
			}
			if err := f.Append([]export.Row{row("2")}); !errors.Is(err, ErrFinished) {
				t.Errorf("Append() after Finish = %v, want ErrFinished", err)
			}
			if f.Rows() != 1 {
				t.Errorf("Rows() = %d, want 1", f.Rows())
			}
		})
	}
}

func TestXLSX_WorkbookWrittenOnceOnFinish(t *testing.T) {
	f, err := Create(t.TempDir(), []string{"id", "name", "sku"}, export.FileXLSX, ',')
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	const batches, perBatch = 5, 1000
	for b := 0; b < batches; b++ {
		rows := make([]export.Row, perBatch)
		for i := range rows {
			n := strconv.Itoa(b*perBatch + i + 1)
			rows[i] = row(n, "product "+n, "SKU-"+n)
		}
		if err := f.Append(rows); err != nil {
			t.Fatalf("Append() batch %d failed: %v", b, err)
		}
		if size, _ := f.Size(); size != 0 {
			t.Fatalf("workbook rewritten after batch %d (size %d)", b, size)
		}
	}

	if err := f.Finish(); err != nil {
		t.Fatalf("Finish() failed: %v", err)
	}
	if size, _ := f.Size(); size == 0 {
		t.Fatal("workbook empty after Finish")
	}

	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer rc.Close()
	wb, err := excelize.OpenReader(rc)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer wb.Close()

	got, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(got) != batches*perBatch+1 {
		t.Fatalf("workbook has %d rows, want %d", len(got), batches*perBatch+1)
	}
	if diff := cmp.Diff([]string{"5000", "product 5000", "SKU-5000"}, got[len(got)-1]); diff != "" {
		t.Errorf("last row mismatch (-want +got):\n%s", diff)
	}
}
