package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierGenerator_Shapes(t *testing.T) {
	g := NewIdentifierGenerator("TXN")
	refPattern := regexp.MustCompile(`^TXN-[0-9A-Za-z]{10}$`)

	seenRefs := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref, err := g.Reference()
		require.NoError(t, err)
		assert.Regexp(t, refPattern, ref)
		seenRefs[ref] = true

		inv, err := g.InvoiceID()
		require.NoError(t, err)
		assert.Len(t, inv, 8)
		assert.True(t, IsInvoiceID(inv), inv)
	}
	assert.Len(t, seenRefs, 200)
}

func TestIdentifierGenerator_PrefixNormalised(t *testing.T) {
	ref, err := NewIdentifierGenerator("POS-").Reference()
	require.NoError(t, err)
	assert.Regexp(t, `^POS-[0-9A-Za-z]{10}$`, ref)

	ref, err = NewIdentifierGenerator("").Reference()
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-`, ref)
}

func TestIsInvoiceID(t *testing.T) {
	assert.True(t, IsInvoiceID("AB12CD34"))
	assert.False(t, IsInvoiceID("ab12cd34"))
	assert.False(t, IsInvoiceID("AB12CD3"))
	assert.False(t, IsInvoiceID("AB12CD3!"))
}
