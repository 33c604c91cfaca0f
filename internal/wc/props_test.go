package wc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropsCanonicalIsOrderIndependent(t *testing.T) {
	a := Props{"svn:eol-style": "native", "k": "<v&>"}
	b := Props{"k": "<v&>", "svn:eol-style": "native"}

	ja, err := a.MarshalCanonical()
	require.NoError(t, err)
	jb, err := b.MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t, ja, jb)
	assert.Equal(t, `{"k":"<v&>","svn:eol-style":"native"}`, string(ja))
}

func TestPropsEmptyForms(t *testing.T) {
	var none Props
	data, err := none.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	parsed, err := ParseProps(data)
	require.NoError(t, err)
	assert.Nil(t, parsed)
	assert.True(t, parsed.Equal(Props{}))

	parsed, err = ParseProps(nil)
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestChecksum(t *testing.T) {
	c := ComputeChecksum([]byte("hi"))
	assert.Equal(t, Checksum("8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"), c)
	assert.True(t, c.Valid())
	assert.Equal(t, "8f434346", c.Short())
	assert.False(t, Checksum("xyz").Valid())
}
