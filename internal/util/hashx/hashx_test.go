package hashx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	a := Digest([]byte("URL=http://localhost:1337\n"))
	b := Digest([]byte("URL=http://localhost:1337\n"))
	c := Digest([]byte("URL=https://rolleilookup.com\n"))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
