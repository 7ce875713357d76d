package pe

import (
	"crypto/md5"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_RichHeaderHash(t *testing.T) {
	tests := []struct {
		name string
		rich bool
		want string
	}{
		{name: "rich header", rich: true, want: fmt.Sprintf("%x", md5.Sum(testRichPlain()))},
		{name: "no rich header", rich: false, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := testDLL(false)
			img.rich = tt.rich
			f := mustParse(t, img.build(t), nil)

			if got := f.RichHeaderHash(); got != tt.want {
				t.Errorf("File.RichHeaderHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_RichHeader(t *testing.T) {
	img := testDLL(true)
	img.rich = true
	f := mustParse(t, img.build(t), nil)

	rh := f.RichHeader()
	require.NotNil(t, rh)
	assert.Equal(t, uint32(testRichKey), rh.XorKey)
	assert.Equal(t, testRichOffset, rh.DansOffset)
	assert.Equal(t, testRichHeader(), rh.Raw)
	assert.Equal(t, []CompID{
		{MinorCV: 30729, ProdID: 0x0104, Count: 3, Unmasked: testCompIDs[0]},
		{MinorCV: 30729, ProdID: 0x0093, Count: 12, Unmasked: testCompIDs[2]},
	}, rh.CompIDs)
	assert.NotZero(t, f.RichHeaderChecksum())

	plain := mustParse(t, testDLL(true).build(t), nil)
	assert.Nil(t, plain.RichHeader())
	assert.Zero(t, plain.RichHeaderChecksum())
}
