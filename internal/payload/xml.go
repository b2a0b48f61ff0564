package payload

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/tinytelemetry/flowlog/internal/model"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// FormatXML serializes an XML document payload compactly. The declaration is
// followed directly by the root element.
func FormatXML(p any) (string, error) {
	if IsStream(p) {
		return StreamingSentinel, nil
	}
	doc, ok := p.(*etree.Document)
	if !ok {
		return "", formatErr(model.PayloadXML, errors.Errorf("payload of type %T is not an XML document", p))
	}
	if doc == nil || doc.Root() == nil {
		return "", formatErr(model.PayloadXML, errors.New("document has no root element"))
	}

	out := doc.Copy()
	compact(&out.Element)
	s, err := out.WriteToString()
	if err != nil {
		return "", formatErr(model.PayloadXML, errors.Wrap(err, "write document"))
	}
	if !hasDeclaration(out) {
		s = xmlDeclaration + s
	}
	return s, nil
}

// compact drops whitespace-only text nodes below e.
func compact(e *etree.Element) {
	children := append([]etree.Token(nil), e.Child...)
	for _, t := range children {
		switch v := t.(type) {
		case *etree.CharData:
			if strings.TrimSpace(v.Data) == "" {
				e.RemoveChild(v)
			}
		case *etree.Element:
			compact(v)
		}
	}
}

func hasDeclaration(doc *etree.Document) bool {
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			return true
		}
	}
	return false
}
