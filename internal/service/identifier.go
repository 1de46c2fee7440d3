package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	referenceLength = 10
	InvoiceIDLength = 8
)

// IdentifierGenerator issues the public identifiers of a transaction.
// Values are not checked for uniqueness here; the unique indexes on the
// ledger reject duplicates and the writer retries with a fresh pair.
type IdentifierGenerator interface {
	Reference() (string, error)
	InvoiceID() (string, error)
}

type randomIdentifiers struct {
	prefix string
}

// NewIdentifierGenerator returns a generator producing references like
// "TXN-4fQ9zK1bXa" and invoice ids like "7K2M9QXA".
func NewIdentifierGenerator(prefix string) IdentifierGenerator {
	if prefix == "" {
		prefix = "TXN"
	}
	return &randomIdentifiers{prefix: strings.TrimSuffix(prefix, "-")}
}

func (g *randomIdentifiers) Reference() (string, error) {
	s, err := randomString(base62Alphabet, referenceLength)
	if err != nil {
		return "", err
	}
	return g.prefix + "-" + s, nil
}

func (g *randomIdentifiers) InvoiceID() (string, error) {
	return randomString(base36Alphabet, InvoiceIDLength)
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// IsInvoiceID reports whether s has the shape of an invoice id.
func IsInvoiceID(s string) bool {
	if len(s) != InvoiceIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(base36Alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
