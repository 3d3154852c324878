package schemawire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/tree"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := tree.NewNode()
	n.AddChild("coords").SetFloat64Array([]float64{1.5, 2.5, 3.5})
	n.AddChild("ids").SetInt64Array([]int64{10, 20, 30})
	n.AddChild("name").SetString("domain0")

	nested := n.AddChild("state")
	nested.AddChild("cycle").SetInt64Array([]int64{4})

	msg, err := Encode(n)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Header)
	require.Len(t, msg.Leaves, 4)

	got, err := Decode(msg)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got.AddChild("coords").Float64Array())
	assert.Equal(t, []int64{10, 20, 30}, got.AddChild("ids").Int64Array())
	assert.Equal(t, "domain0", got.AddChild("name").String())
	assert.Equal(t, []int64{4}, got.AddChild("state").AddChild("cycle").Int64Array())
}

func TestEncodeDecodeEmptyLeaf(t *testing.T) {
	n := tree.NewNode()
	n.AddChild("empty").SetFloat64Array(nil)

	msg, err := Encode(n)
	require.NoError(t, err)

	got, err := Decode(msg)
	require.NoError(t, err)
	assert.Empty(t, got.AddChild("empty").Float64Array())
}
