package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestFitTFIDF_Vocabulary(t *testing.T) {
	stop := func(w string) bool { return w == "the" }
	tf, x := FitTFIDF([]string{"the brake squeal", "engine brake", "a x"}, stop)

	// Single-character tokens never match the term pattern.
	assert.Equal(t, []string{"brake", "engine", "squeal"}, tf.Vocabulary)
	require.NotNil(t, x)
	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
}

func TestFitTFIDF_SmoothedIDF(t *testing.T) {
	tf, _ := FitTFIDF([]string{"brake squeal", "brake grind"}, nil)

	// brake appears in both docs, squeal in one.
	assert.InDelta(t, 1.0, tf.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, tf.IDF[2], 1e-12)
}

func TestFitTFIDF_RowsAreUnitLength(t *testing.T) {
	_, x := FitTFIDF([]string{"brake brake squeal", "engine stall", "ac warm air"}, nil)
	require.NotNil(t, x)
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, floats.Norm(x.RawRowView(i), 2), 1e-12)
	}
}

func TestFitTFIDF_EmptyDocumentIsZeroRow(t *testing.T) {
	_, x := FitTFIDF([]string{"brake squeal", ""}, nil)
	require.NotNil(t, x)
	assert.Equal(t, 0.0, floats.Norm(x.RawRowView(1), 2))
}

func TestFitTFIDF_NoTerms(t *testing.T) {
	tf, x := FitTFIDF([]string{"", "a b"}, nil)
	assert.Nil(t, x)
	assert.Empty(t, tf.Vocabulary)

	_, x = FitTFIDF(nil, nil)
	assert.Nil(t, x)
}
