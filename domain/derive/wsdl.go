package derive

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/relation"
)

const wsdlNamespace = "http://schemas.xmlsoap.org/wsdl/"

// WsdlDeriver derives messages, parts, port types, operations, services,
// and ports from a WSDL definitions document. Message-to-part and
// portType-to-operation edges are declared during Derive; part-to-element
// edges are resolved during Link because the element declarations may live
// in a separately uploaded schema.
type WsdlDeriver struct{}

func NewWsdlDeriver() *WsdlDeriver { return &WsdlDeriver{} }

func (d *WsdlDeriver) Name() string { return "wsdl" }

func (d *WsdlDeriver) Derive(primary *artifact.Artifact, content []byte) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse wsdl document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("wsdl document has no root element")
	}
	if root.NamespaceURI() != wsdlNamespace || root.Tag != "definitions" {
		return nil, fmt.Errorf("unexpected root element {%s}%s, want {%s}definitions", root.NamespaceURI(), root.Tag, wsdlNamespace)
	}

	targetNS := root.SelectAttrValue("targetNamespace", "")
	primary.SetProperty("targetNamespace", targetNS)

	res := &Result{}

	for _, el := range root.ChildElements() {
		if el.NamespaceURI() != wsdlNamespace {
			continue
		}
		switch el.Tag {
		case "message":
			d.deriveMessage(res, el, root, targetNS)
		case "portType":
			d.derivePortType(res, el, targetNS)
		case "service":
			d.deriveService(res, el, targetNS)
		}
	}
	return res, nil
}

func (d *WsdlDeriver) deriveMessage(res *Result, el, root *etree.Element, targetNS string) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	msg := newDeclaration(artifact.TypeMessage, name, targetNS)
	res.Derived = append(res.Derived, msg)

	var parts []*artifact.Artifact
	for _, pe := range el.ChildElements() {
		if pe.NamespaceURI() != wsdlNamespace || pe.Tag != "part" {
			continue
		}
		pname := pe.SelectAttrValue("name", "")
		if pname == "" {
			continue
		}
		part := newDeclaration(artifact.TypePart, pname, targetNS)
		// Remember the referenced element declaration for the Link phase.
		if ref := pe.SelectAttrValue("element", ""); ref != "" {
			prefix, local := qname(ref)
			part.SetProperty("elementName", local)
			part.SetProperty("elementNamespace", namespaceForPrefix(root, prefix))
		}
		parts = append(parts, part)
	}
	res.Derived = append(res.Derived, parts...)
	if len(parts) > 0 {
		res.Relations = append(res.Relations, Relation{
			Source: msg, Name: "part", MinCardinality: 1, MaxCardinality: -1, Targets: parts,
		})
	}
}

func (d *WsdlDeriver) derivePortType(res *Result, el *etree.Element, targetNS string) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	pt := newDeclaration(artifact.TypePortType, name, targetNS)
	res.Derived = append(res.Derived, pt)

	var ops []*artifact.Artifact
	for _, oe := range el.ChildElements() {
		if oe.NamespaceURI() != wsdlNamespace || oe.Tag != "operation" {
			continue
		}
		oname := oe.SelectAttrValue("name", "")
		if oname == "" {
			continue
		}
		ops = append(ops, newDeclaration(artifact.TypeOperation, oname, targetNS))
	}
	res.Derived = append(res.Derived, ops...)
	if len(ops) > 0 {
		res.Relations = append(res.Relations, Relation{
			Source: pt, Name: "operation", MinCardinality: 0, MaxCardinality: -1, Targets: ops,
		})
	}
}

func (d *WsdlDeriver) deriveService(res *Result, el *etree.Element, targetNS string) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	svc := newDeclaration(artifact.TypeService, name, targetNS)
	res.Derived = append(res.Derived, svc)

	var ports []*artifact.Artifact
	for _, pe := range el.ChildElements() {
		if pe.NamespaceURI() != wsdlNamespace || pe.Tag != "port" {
			continue
		}
		pname := pe.SelectAttrValue("name", "")
		if pname == "" {
			continue
		}
		ports = append(ports, newDeclaration(artifact.TypePort, pname, targetNS))
	}
	res.Derived = append(res.Derived, ports...)
	if len(ports) > 0 {
		res.Relations = append(res.Relations, Relation{
			Source: svc, Name: "port", MinCardinality: 1, MaxCardinality: -1, Targets: ports,
		})
	}
}

// Link connects each part to the element declaration it references, which
// may have been derived from a schema uploaded in an earlier transaction.
func (d *WsdlDeriver) Link(ctx context.Context, lc *LinkContext, primary *artifact.Artifact, derived []*artifact.Artifact) error {
	for _, a := range derived {
		if a.Type != artifact.TypePart {
			continue
		}
		name, ok := a.Property("elementName")
		if !ok {
			continue
		}
		props := map[string]string{"ncName": name}
		if ns, ok := a.Property("elementNamespace"); ok && ns != "" {
			props["namespace"] = ns
		}
		targets, err := lc.Find(ctx, artifact.TypeElementDeclaration, props)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			// Unresolved references stay unlinked; a later schema upload
			// does not retroactively link existing parts.
			continue
		}
		if err := relation.SetModeled(a, "element", 0, 1, []string{targets[0].UUID}); err != nil {
			return err
		}
	}
	return nil
}

// namespaceForPrefix resolves an xmlns declaration on the document root.
func namespaceForPrefix(root *etree.Element, prefix string) string {
	if prefix == "" {
		return root.SelectAttrValue("xmlns", "")
	}
	for _, attr := range root.Attr {
		if attr.Space == "xmlns" && attr.Key == prefix {
			return attr.Value
		}
	}
	return ""
}
