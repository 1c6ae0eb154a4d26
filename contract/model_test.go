package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Resolve(t *testing.T) {
	doc := &Document{
		Schemas: map[string]*Schema{
			"Pet":     {Type: "object"},
			"Alias":   {Ref: "#/components/schemas/Pet"},
			"CycleA":  {Ref: "#/components/schemas/CycleB"},
			"CycleB":  {Ref: "#/components/schemas/CycleA"},
			"SelfRef": {Ref: "#/components/schemas/SelfRef"},
		},
	}

	t.Run("non-ref schema passes through", func(t *testing.T) {
		s := &Schema{Type: "string"}
		assert.Same(t, s, doc.Resolve(s))
	})

	t.Run("nil schema passes through", func(t *testing.T) {
		assert.Nil(t, doc.Resolve(nil))
	})

	t.Run("direct ref", func(t *testing.T) {
		resolved := doc.Resolve(&Schema{Ref: "#/components/schemas/Pet"})
		assert.Same(t, doc.Schemas["Pet"], resolved)
	})

	t.Run("chained ref", func(t *testing.T) {
		resolved := doc.Resolve(&Schema{Ref: "#/components/schemas/Alias"})
		assert.Same(t, doc.Schemas["Pet"], resolved)
	})

	t.Run("unknown target", func(t *testing.T) {
		assert.Nil(t, doc.Resolve(&Schema{Ref: "#/components/schemas/Missing"}))
	})

	t.Run("non-local ref", func(t *testing.T) {
		assert.Nil(t, doc.Resolve(&Schema{Ref: "external.yaml#/Pet"}))
	})

	t.Run("cycle terminates", func(t *testing.T) {
		assert.Nil(t, doc.Resolve(&Schema{Ref: "#/components/schemas/CycleA"}))
		assert.Nil(t, doc.Resolve(&Schema{Ref: "#/components/schemas/SelfRef"}))
	})

	t.Run("nil document", func(t *testing.T) {
		var empty *Document
		assert.Nil(t, empty.Resolve(&Schema{Ref: "#/components/schemas/Pet"}))
	})
}

func TestDocument_Entry(t *testing.T) {
	doc := &Document{Paths: []*PathEntry{
		{Template: "/pets"},
		{Template: "/pets/{petId}"},
	}}

	require.NotNil(t, doc.Entry("/pets/{petId}"))
	assert.Equal(t, "/pets/{petId}", doc.Entry("/pets/{petId}").Template)
	assert.Nil(t, doc.Entry("/pets/{id}"))
}

func TestDocument_OperationCount(t *testing.T) {
	doc := &Document{Paths: []*PathEntry{
		{Template: "/a", Operations: map[string]*Operation{"GET": {}, "POST": {}}},
		{Template: "/b", Operations: map[string]*Operation{"DELETE": {}}},
		{Template: "/c"},
	}}
	assert.Equal(t, 3, doc.OperationCount())
}
