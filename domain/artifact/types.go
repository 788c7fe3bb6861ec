package artifact

import (
	"strings"

	"github.com/artifexhq/artifex/pkg/apperror"
)

// Type identifies an artifact's model and type, e.g. "xsd/XsdDocument".
// The model groups related types; the type names the concrete kind.
type Type struct {
	Model string
	Type  string
}

func (t Type) String() string {
	return t.Model + "/" + t.Type
}

// IsZero reports whether the type is unset.
func (t Type) IsZero() bool {
	return t.Model == "" && t.Type == ""
}

// Core model types.
var (
	TypeDocument    = Type{"core", "Document"}
	TypeXmlDocument = Type{"core", "XmlDocument"}
)

// XSD model types.
var (
	TypeXsdDocument            = Type{"xsd", "XsdDocument"}
	TypeElementDeclaration     = Type{"xsd", "ElementDeclaration"}
	TypeAttributeDeclaration   = Type{"xsd", "AttributeDeclaration"}
	TypeSimpleTypeDeclaration  = Type{"xsd", "SimpleTypeDeclaration"}
	TypeComplexTypeDeclaration = Type{"xsd", "ComplexTypeDeclaration"}
)

// WSDL model types.
var (
	TypeWsdlDocument = Type{"wsdl", "WsdlDocument"}
	TypeMessage      = Type{"wsdl", "Message"}
	TypePart         = Type{"wsdl", "Part"}
	TypePortType     = Type{"wsdl", "PortType"}
	TypeOperation    = Type{"wsdl", "Operation"}
	TypeService      = Type{"wsdl", "Service"}
	TypePort         = Type{"wsdl", "Port"}
)

// JSON Schema model types.
var (
	TypeJsonSchemaDocument  = Type{"json", "JsonSchemaDocument"}
	TypeDefinition          = Type{"json", "Definition"}
	TypePropertyDeclaration = Type{"json", "PropertyDeclaration"}
)

// knownTypes indexes every built-in type by its type name, for resolving
// the model in "//TypeName" queries, and records which types are
// deriver-produced.
var knownTypes = map[string]struct {
	t       Type
	derived bool
}{
	"Document":               {TypeDocument, false},
	"XmlDocument":            {TypeXmlDocument, false},
	"XsdDocument":            {TypeXsdDocument, false},
	"ElementDeclaration":     {TypeElementDeclaration, true},
	"AttributeDeclaration":   {TypeAttributeDeclaration, true},
	"SimpleTypeDeclaration":  {TypeSimpleTypeDeclaration, true},
	"ComplexTypeDeclaration": {TypeComplexTypeDeclaration, true},
	"WsdlDocument":           {TypeWsdlDocument, false},
	"Message":                {TypeMessage, true},
	"Part":                   {TypePart, true},
	"PortType":               {TypePortType, true},
	"Operation":              {TypeOperation, true},
	"Service":                {TypeService, true},
	"Port":                   {TypePort, true},
	"JsonSchemaDocument":     {TypeJsonSchemaDocument, false},
	"Definition":             {TypeDefinition, true},
	"PropertyDeclaration":    {TypePropertyDeclaration, true},
}

// ParseType parses a "model/Type" string.
func ParseType(s string) (Type, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Type{}, apperror.ErrValidation.WithMessagef("invalid artifact type %q, want model/Type", s)
	}
	return Type{Model: parts[0], Type: parts[1]}, nil
}

// TypeForName resolves a bare built-in type name to its full type, used
// for the "//TypeName" query form. Unknown names report false; queries
// then match on the type name alone, which covers user-defined kinds.
func TypeForName(name string) (Type, bool) {
	k, ok := knownTypes[name]
	if !ok {
		return Type{}, false
	}
	return k.t, true
}

// IsDerivedType reports whether t is a type that only derivers may create.
func IsDerivedType(t Type) bool {
	k, ok := knownTypes[t.Type]
	return ok && k.t == t && k.derived
}

// IsDocumentType reports whether artifacts of type t carry binary content.
func IsDocumentType(t Type) bool {
	switch t {
	case TypeDocument, TypeXmlDocument, TypeXsdDocument, TypeWsdlDocument, TypeJsonSchemaDocument:
		return true
	}
	// Unknown models default to document-kind: uploads of arbitrary typed
	// documents are allowed.
	_, known := knownTypes[t.Type]
	return !known
}

// RelationshipKind distinguishes how an edge came to exist.
type RelationshipKind string

const (
	// KindGeneric is a user-declared, free-form edge.
	KindGeneric RelationshipKind = "generic"
	// KindModeled is an edge created by a deriver as part of content
	// derivation.
	KindModeled RelationshipKind = "modeled"
	// KindDerived is the automatic back-reference between a derived
	// artifact and its source document.
	KindDerived RelationshipKind = "derived"
)
