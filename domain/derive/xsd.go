package derive

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/artifexhq/artifex/domain/artifact"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema"

// XsdDeriver derives one artifact per top-level declaration of an XML
// schema document.
type XsdDeriver struct{}

func NewXsdDeriver() *XsdDeriver { return &XsdDeriver{} }

func (d *XsdDeriver) Name() string { return "xsd" }

func (d *XsdDeriver) Derive(primary *artifact.Artifact, content []byte) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("schema document has no root element")
	}
	if root.NamespaceURI() != xsdNamespace || root.Tag != "schema" {
		return nil, fmt.Errorf("unexpected root element {%s}%s, want {%s}schema", root.NamespaceURI(), root.Tag, xsdNamespace)
	}

	targetNS := root.SelectAttrValue("targetNamespace", "")
	primary.SetProperty("targetNamespace", targetNS)

	res := &Result{}
	for _, el := range root.ChildElements() {
		if el.NamespaceURI() != xsdNamespace {
			continue
		}
		var t artifact.Type
		switch el.Tag {
		case "element":
			t = artifact.TypeElementDeclaration
		case "attribute":
			t = artifact.TypeAttributeDeclaration
		case "simpleType":
			t = artifact.TypeSimpleTypeDeclaration
		case "complexType":
			t = artifact.TypeComplexTypeDeclaration
		default:
			continue
		}
		name := el.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		res.Derived = append(res.Derived, newDeclaration(t, name, targetNS))
	}
	return res, nil
}

func (d *XsdDeriver) Link(ctx context.Context, lc *LinkContext, primary *artifact.Artifact, derived []*artifact.Artifact) error {
	// Schema declarations are link targets, never link sources.
	return nil
}

// newDeclaration builds a derived declaration artifact carrying the
// standard ncName/namespace properties.
func newDeclaration(t artifact.Type, ncName, namespace string) *artifact.Artifact {
	a := &artifact.Artifact{
		Type: t,
		Name: ncName,
	}
	a.SetProperty("ncName", ncName)
	a.SetProperty("namespace", namespace)
	return a
}
