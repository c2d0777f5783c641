package report

import (
	"fmt"
	"io"
)

// Format is a downloadable document type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

var contentTypes = map[Format]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPDF:  "application/pdf",
}

// ParseFormat accepts the file extensions of the supported formats.
func ParseFormat(s string) (Format, bool) {
	f := Format(s)
	_, ok := contentTypes[f]
	return f, ok
}

func (f Format) ContentType() string { return contentTypes[f] }

// Filename is the attachment name offered to the browser.
func (f Format) Filename() string { return "transactions." + string(f) }

// Write renders d in format f.
func Write(w io.Writer, f Format, d Data) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, d)
	case FormatXLSX:
		return WriteXLSX(w, d)
	case FormatPDF:
		return WritePDF(w, d)
	default:
		return fmt.Errorf("unsupported report format %q", f)
	}
}
