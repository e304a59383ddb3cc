package export

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// writeDOCX produces the smallest WordprocessingML package Word opens:
// one paragraph per line of text.
func writeDOCX(w io.Writer, text string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body func(io.Writer) error
	}{
		{"[Content_Types].xml", func(w io.Writer) error { _, err := io.WriteString(w, contentTypesXML); return err }},
		{"_rels/.rels", func(w io.Writer) error { _, err := io.WriteString(w, relsXML); return err }},
		{"word/document.xml", func(w io.Writer) error { return writeDocumentXML(w, text) }},
	}
	for _, part := range parts {
		pw, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if err := part.body(pw); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeDocumentXML(w io.Writer, text string) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		if err := xml.EscapeText(&b, []byte(line)); err != nil {
			return err
		}
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	_, err := io.WriteString(w, b.String())
	return err
}
