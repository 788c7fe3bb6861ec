package derive

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
)

const ordersXsd = `<?xml version="1.0"?>
<xsd:schema xmlns:xsd="http://www.w3.org/2001/XMLSchema"
            targetNamespace="urn:orders">
  <xsd:element name="order"/>
  <xsd:element name="orderAck"/>
  <xsd:attribute name="priority"/>
  <xsd:simpleType name="orderId"/>
  <xsd:complexType name="orderType"/>
</xsd:schema>`

const ordersWsdl = `<?xml version="1.0"?>
<wsdl:definitions xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/"
                  xmlns:ord="urn:orders"
                  targetNamespace="urn:orders-svc">
  <wsdl:message name="submitOrderRequest">
    <wsdl:part name="body" element="ord:order"/>
  </wsdl:message>
  <wsdl:portType name="OrderPortType">
    <wsdl:operation name="submitOrder"/>
    <wsdl:operation name="cancelOrder"/>
  </wsdl:portType>
  <wsdl:service name="OrderService">
    <wsdl:port name="OrderPort"/>
  </wsdl:service>
</wsdl:definitions>`

const invoiceSchema = `{
  "$id": "urn:invoice",
  "title": "Invoice",
  "type": "object",
  "properties": {
    "total": {"type": "number"},
    "currency": {"type": "string", "description": "ISO 4217 code"}
  },
  "$defs": {
    "LineItem": {"type": "object", "description": "one invoice line"}
  }
}`

func testFramework(t *testing.T) *Framework {
	t.Helper()
	return NewFramework(NewRegistry(), slog.Default())
}

func primaryOf(typ artifact.Type, name string) *artifact.Artifact {
	now := time.Now().UTC()
	return &artifact.Artifact{
		UUID: "primary-1", Type: typ, Name: name,
		CreatedBy: "alice", CreatedAt: now, ModifiedBy: "alice", ModifiedAt: now,
	}
}

func TestXsdDerivation(t *testing.T) {
	f := testFramework(t)
	primary := primaryOf(artifact.TypeXsdDocument, "orders.xsd")

	d, err := f.Derive(primary, []byte(ordersXsd))
	require.NoError(t, err)

	ns, _ := primary.Property("targetNamespace")
	assert.Equal(t, "urn:orders", ns)
	require.Len(t, d.Derived, 5)

	counts := map[artifact.Type]int{}
	for _, a := range d.Derived {
		counts[a.Type]++
		assert.True(t, a.Derived)
		assert.Equal(t, "primary-1", a.DerivedFrom)
		assert.NotEmpty(t, a.UUID)
		nc, ok := a.Property("ncName")
		require.True(t, ok)
		assert.Equal(t, a.Name, nc)
	}
	assert.Equal(t, 2, counts[artifact.TypeElementDeclaration])
	assert.Equal(t, 1, counts[artifact.TypeAttributeDeclaration])
	assert.Equal(t, 1, counts[artifact.TypeSimpleTypeDeclaration])
	assert.Equal(t, 1, counts[artifact.TypeComplexTypeDeclaration])
}

func TestXsdDerivationRejectsWrongRoot(t *testing.T) {
	f := testFramework(t)
	primary := primaryOf(artifact.TypeXsdDocument, "bad.xsd")

	_, err := f.Derive(primary, []byte(`<notASchema/>`))
	assert.Error(t, err)

	_, err = f.Derive(primary, []byte(`this is not xml`))
	assert.Error(t, err)
}

func TestWsdlDerivationAndLinking(t *testing.T) {
	f := testFramework(t)

	// Derive the schema first so the element declarations exist in-batch.
	xsdPrimary := primaryOf(artifact.TypeXsdDocument, "orders.xsd")
	xsdDeriv, err := f.Derive(xsdPrimary, []byte(ordersXsd))
	require.NoError(t, err)

	wsdlPrimary := primaryOf(artifact.TypeWsdlDocument, "orders.wsdl")
	wsdlPrimary.UUID = "primary-2"
	d, err := f.Derive(wsdlPrimary, []byte(ordersWsdl))
	require.NoError(t, err)

	byType := map[artifact.Type][]*artifact.Artifact{}
	for _, a := range d.Derived {
		byType[a.Type] = append(byType[a.Type], a)
	}
	require.Len(t, byType[artifact.TypeMessage], 1)
	require.Len(t, byType[artifact.TypePart], 1)
	require.Len(t, byType[artifact.TypePortType], 1)
	require.Len(t, byType[artifact.TypeOperation], 2)
	require.Len(t, byType[artifact.TypeService], 1)
	require.Len(t, byType[artifact.TypePort], 1)

	// Modeled edges from the Derive phase.
	msg := byType[artifact.TypeMessage][0]
	rel, ok := msg.Relationship("part")
	require.True(t, ok)
	assert.Equal(t, artifact.KindModeled, rel.Kind)
	assert.Equal(t, []string{byType[artifact.TypePart][0].UUID}, rel.Targets)

	pt := byType[artifact.TypePortType][0]
	rel, ok = pt.Relationship("operation")
	require.True(t, ok)
	assert.Len(t, rel.Targets, 2)

	// Link resolves the part's element reference across deriver output.
	batch := append([]*artifact.Artifact{wsdlPrimary}, d.Derived...)
	batch = append(batch, xsdDeriv.Derived...)
	lc := NewLinkContext(nil, batch)
	require.NoError(t, f.Link(context.Background(), lc, wsdlPrimary, d.Derived))

	part := byType[artifact.TypePart][0]
	rel, ok = part.Relationship("element")
	require.True(t, ok)
	require.Len(t, rel.Targets, 1)

	var wantUUID string
	for _, a := range xsdDeriv.Derived {
		if a.Type == artifact.TypeElementDeclaration && a.Name == "order" {
			wantUUID = a.UUID
		}
	}
	assert.Equal(t, wantUUID, rel.Targets[0])
}

func TestWsdlLinkLeavesUnresolvedPartsAlone(t *testing.T) {
	f := testFramework(t)
	primary := primaryOf(artifact.TypeWsdlDocument, "orders.wsdl")

	d, err := f.Derive(primary, []byte(ordersWsdl))
	require.NoError(t, err)

	lc := NewLinkContext(nil, append([]*artifact.Artifact{primary}, d.Derived...))
	require.NoError(t, f.Link(context.Background(), lc, primary, d.Derived))

	for _, a := range d.Derived {
		if a.Type == artifact.TypePart {
			_, ok := a.Relationship("element")
			assert.False(t, ok)
		}
	}
}

func TestJsonSchemaDerivation(t *testing.T) {
	f := testFramework(t)
	primary := primaryOf(artifact.TypeJsonSchemaDocument, "invoice.json")

	d, err := f.Derive(primary, []byte(invoiceSchema))
	require.NoError(t, err)

	title, _ := primary.Property("schemaTitle")
	assert.Equal(t, "Invoice", title)

	names := map[artifact.Type][]string{}
	for _, a := range d.Derived {
		names[a.Type] = append(names[a.Type], a.Name)
	}
	assert.Equal(t, []string{"LineItem"}, names[artifact.TypeDefinition])
	assert.ElementsMatch(t, []string{"total", "currency"}, names[artifact.TypePropertyDeclaration])

	_, err = f.Derive(primary, []byte(`{not json`))
	assert.Error(t, err)
}

func TestDeriveNoDeriversForType(t *testing.T) {
	f := testFramework(t)
	primary := primaryOf(artifact.TypeDocument, "readme.txt")

	d, err := f.Derive(primary, []byte("plain text"))
	require.NoError(t, err)
	assert.Empty(t, d.Derived)
}
