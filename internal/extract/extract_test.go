package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestFromBytesPlainText(t *testing.T) {
	res, err := FromBytes(context.Background(), []byte("bonjour"), "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if res.Text != "bonjour" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestFromBytesDOCX(t *testing.T) {
	doc := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>` +
		`<w:p><w:r><w:t>Ligne une</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Ligne deux</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": doc})

	res, err := FromBytes(context.Background(), data, "application/zip", "memo.docx")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if res.Text != "Ligne une\nLigne deux" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestFromBytesXLSX(t *testing.T) {
	shared := `<?xml version="1.0"?><sst xmlns="ns">` +
		`<si><t>Désignation</t></si><si><t>Montant HT</t></si>` +
		`</sst>`
	sheet := `<?xml version="1.0"?><worksheet xmlns="ns"><sheetData>` +
		`<row><c t="s"><v>0</v></c><c t="s"><v>1</v></c></row>` +
		`<row><c t="inlineStr"><is><t>Total</t></is></c><c><v>26300.00</v></c></row>` +
		`</sheetData></worksheet>`
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":          `<workbook/>`,
		"xl/sharedStrings.xml":     shared,
		"xl/worksheets/sheet1.xml": sheet,
	})

	res, err := FromBytes(context.Background(), data, "", "04_DPGF_quantitatif.xlsx")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if len(res.Tables) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Tables))
	}
	if res.Tables[0][0] != "Désignation" || res.Tables[1][1] != "26300.00" {
		t.Fatalf("tables = %v", res.Tables)
	}
}

func TestFromBytesUnsupported(t *testing.T) {
	_, err := FromBytes(context.Background(), []byte{0x1}, "image/png", "photo.png")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFromBytesCorruptDOCX(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	_, err := FromBytes(context.Background(), data, mimeDOCX, "memo.docx")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}
