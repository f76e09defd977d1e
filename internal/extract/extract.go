package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeText = "text/plain"
)

// ErrUnsupportedFormat indicates a media type the adapter cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrCorrupt indicates a payload that declared a supported media type but
// could not be decoded.
var ErrCorrupt = errors.New("corrupt document")

// Result is the extracted content of one document.
type Result struct {
	Text   string
	Tables [][]string
}

// FromBytes extracts plain text, and tabular rows where the format carries
// them, from an in-memory payload.
// Libraries used: github.com/ledongthuc/pdf (PDF); DOCX and XLSX are walked
// directly as OOXML zip archives.
func FromBytes(ctx context.Context, data []byte, mediaType string, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	normalized := normalizeMediaType(mediaType, fileName, data)
	switch normalized {
	case mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return Result{}, fmt.Errorf("%w: pdf %s: %v", ErrCorrupt, fileName, err)
		}
		return Result{Text: text}, nil
	case mimeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return Result{}, fmt.Errorf("%w: docx %s: %v", ErrCorrupt, fileName, err)
		}
		return Result{Text: text}, nil
	case mimeXLSX:
		return extractXLSX(data, fileName)
	case mimeText:
		return Result{Text: string(data)}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, normalized)
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	raw, err := readZipFile(docFile)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// extractXLSX returns the first worksheet as tab-joined text plus the raw
// rows. Shared strings are resolved; formula results are taken as stored.
func extractXLSX(data []byte, fileName string) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: xlsx %s: empty data", ErrCorrupt, fileName)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: xlsx %s: %v", ErrCorrupt, fileName, err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return Result{}, fmt.Errorf("%w: xlsx %s: %v", ErrCorrupt, fileName, err)
	}

	var sheet *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "xl/worksheets/sheet") && strings.HasSuffix(name, ".xml") {
			if sheet == nil || name < strings.ReplaceAll(sheet.Name, "\\", "/") {
				sheet = f
			}
		}
	}
	if sheet == nil {
		return Result{}, fmt.Errorf("%w: xlsx %s: no worksheet", ErrCorrupt, fileName)
	}

	raw, err := readZipFile(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("%w: xlsx %s: %v", ErrCorrupt, fileName, err)
	}

	rows, err := parseSheetRows(raw, shared)
	if err != nil {
		return Result{}, fmt.Errorf("%w: xlsx %s: %v", ErrCorrupt, fileName, err)
	}

	var buf strings.Builder
	for _, row := range rows {
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteString("\n")
	}
	return Result{Text: buf.String(), Tables: rows}, nil
}

type sharedStringsXML struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func readSharedStrings(zr *zip.Reader) ([]string, error) {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "xl/sharedStrings.xml" {
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		var parsed sharedStringsXML
		if err := xml.Unmarshal(raw, &parsed); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(parsed.Items))
		for _, si := range parsed.Items {
			if si.T != "" || len(si.Runs) == 0 {
				out = append(out, si.T)
				continue
			}
			var b strings.Builder
			for _, r := range si.Runs {
				b.WriteString(r.T)
			}
			out = append(out, b.String())
		}
		return out, nil
	}
	return nil, nil
}

type sheetXML struct {
	Rows []struct {
		Cells []struct {
			Type  string `xml:"t,attr"`
			Value string `xml:"v"`
			Is    struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func parseSheetRows(raw []byte, shared []string) ([][]string, error) {
	var parsed sheetXML
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(parsed.Rows))
	for _, r := range parsed.Rows {
		row := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			switch c.Type {
			case "s":
				idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
				if err != nil || idx < 0 || idx >= len(shared) {
					row = append(row, "")
					continue
				}
				row = append(row, shared[idx])
			case "inlineStr":
				row = append(row, c.Is.T)
			default:
				row = append(row, c.Value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func normalizeMediaType(mediaType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
	switch clean {
	case "", "application/octet-stream", "application/zip":
	default:
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".xlsx":
		return mimeXLSX
	case ".txt", ".md", ".csv":
		return mimeText
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch name {
		case "word/document.xml":
			return mimeDOCX
		case "xl/workbook.xml":
			return mimeXLSX
		}
	}
	return ""
}
