package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stm32f2Layout = "/0x08000000/04*016Kg,01*064Kg,07*128Kg"

func TestParseMemoryLayout(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want []Segment
	}{
		{
			name: "stm32f2 flash",
			desc: stm32f2Layout,
			want: []Segment{
				{StartAddr: 0x08000000, PageCount: 4, PageSize: 16384, Code: 'g'},
				{StartAddr: 0x08010000, PageCount: 1, PageSize: 65536, Code: 'g'},
				{StartAddr: 0x08020000, PageCount: 7, PageSize: 131072, Code: 'g'},
			},
		},
		{
			name: "named region with trailing NUL",
			desc: "@Internal Flash  /0x08000000/04*016Kg,01*064Kg\x00",
			want: []Segment{
				{StartAddr: 0x08000000, PageCount: 4, PageSize: 16384, Code: 'g'},
				{StartAddr: 0x08010000, PageCount: 1, PageSize: 65536, Code: 'g'},
			},
		},
		{
			name: "byte multiplier",
			desc: "@Option Bytes  /0x1FFFC000/01*016 e",
			want: []Segment{
				{StartAddr: 0x1FFFC000, PageCount: 1, PageSize: 16, Code: 'e'},
			},
		},
		{
			name: "megabyte pages",
			desc: "/0x90000000/02*001Mg",
			want: []Segment{
				{StartAddr: 0x90000000, PageCount: 2, PageSize: 1 << 20, Code: 'g'},
			},
		},
		{
			name: "no multiplier",
			desc: "/0x20000000/08*512a",
			want: []Segment{
				{StartAddr: 0x20000000, PageCount: 8, PageSize: 512, Code: 'a'},
			},
		},
		{
			name: "only first region decoded",
			desc: "@Flash/0x08000000/02*016Kg/0x1FFF0000/01*030Ke",
			want: []Segment{
				{StartAddr: 0x08000000, PageCount: 2, PageSize: 16384, Code: 'g'},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMemoryLayout(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMemoryLayoutContiguous(t *testing.T) {
	segs, err := ParseMemoryLayout(stm32f2Layout)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	for i := 0; i+1 < len(segs); i++ {
		assert.Equal(t, segs[i].EndAddr()+1, segs[i+1].StartAddr, "segment %d", i)
		assert.Equal(t, segs[i].StartAddr+segs[i].PageCount*segs[i].PageSize-1, segs[i].EndAddr())
	}
	assert.Equal(t, uint32(0x080FFFFF), segs[2].EndAddr())
}

func TestParseMemoryLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		desc   string
		errMsg string
	}{
		{name: "empty", desc: "", errMsg: "expected /<address>/<segments>"},
		{name: "missing segments", desc: "/0x08000000", errMsg: "expected /<address>/<segments>"},
		{name: "bad address", desc: "/0xZZ/04*016Kg", errMsg: "invalid base address"},
		{name: "bad token", desc: "/0x08000000/04x016Kg", errMsg: "expected <pages>*<size>"},
		{name: "missing code", desc: "/0x08000000/04*016", errMsg: "expected <pages>*<size>"},
		{name: "empty token", desc: "/0x08000000/04*016Kg,", errMsg: "expected <pages>*<size>"},
		{name: "zero pages", desc: "/0x08000000/00*016Kg", errMsg: "empty segment"},
		{name: "overflow", desc: "/0xFFFF0000/02*064Kg", errMsg: "exceeds 32-bit"},
		{name: "huge page size", desc: "/0x08000000/4194304*4194304Mg", errMsg: "page size exceeds"},
		{name: "huge segment", desc: "/0x00000000/65536*65536Kg", errMsg: "segment exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMemoryLayout(tt.desc)
			require.Error(t, err)
			assert.True(t, IsMalformedDescriptor(err))
			assert.True(t, IsMalformedDescriptor(fmt.Errorf("read layout: %w", err)))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPagesInRange(t *testing.T) {
	segs, err := ParseMemoryLayout(stm32f2Layout)
	require.NoError(t, err)

	tests := []struct {
		name   string
		start  uint32
		length int
		want   []Page
	}{
		{
			name:   "single page at start",
			start:  0x08000000,
			length: 256,
			want:   []Page{{Addr: 0x08000000, Size: 16384, Segment: 0}},
		},
		{
			name:   "exactly one page",
			start:  0x08000000,
			length: 16384,
			want:   []Page{{Addr: 0x08000000, Size: 16384, Segment: 0}},
		},
		{
			name:   "one byte into next page",
			start:  0x08000000,
			length: 16385,
			want: []Page{
				{Addr: 0x08000000, Size: 16384, Segment: 0},
				{Addr: 0x08004000, Size: 16384, Segment: 0},
			},
		},
		{
			name:   "unaligned start",
			start:  0x08003F00,
			length: 512,
			want: []Page{
				{Addr: 0x08000000, Size: 16384, Segment: 0},
				{Addr: 0x08004000, Size: 16384, Segment: 0},
			},
		},
		{
			name:   "spans segments",
			start:  0x0800C000,
			length: 0x14001,
			want: []Page{
				{Addr: 0x0800C000, Size: 16384, Segment: 0},
				{Addr: 0x08010000, Size: 65536, Segment: 1},
				{Addr: 0x08020000, Size: 131072, Segment: 2},
			},
		},
		{
			name:   "outside layout",
			start:  0x20000000,
			length: 1024,
			want:   nil,
		},
		{
			name:   "empty",
			start:  0x08000000,
			length: 0,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PagesInRange(segs, tt.start, tt.length))
		})
	}
}
