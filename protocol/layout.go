package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// Page size multipliers used in segment tokens.
const (
	KiB = 1024
	MiB = 1024 * 1024
)

// segmentPattern matches "<pages>*<size><multiplier><code>", e.g. "04*016Kg".
var segmentPattern = regexp.MustCompile(`^(\d+)\*(\d+)([KMB ]?)([A-Za-z])$`)

// ParseMemoryLayout decodes a DfuSe memory layout string of the form
//
//	[@name]/<base_addr>/<pages>*<size><multiplier><code>,...
//
// into an ordered list of contiguous segments starting at the base address.
// Only the first address region is decoded.
//
// Example:
//
//	segs, err := protocol.ParseMemoryLayout("@Internal Flash  /0x08000000/04*016Kg,01*064Kg,07*128Kg")
//	// segs[1].StartAddr == 0x08010000
func ParseMemoryLayout(desc string) ([]Segment, error) {
	fail := func(token, reason string) error {
		return &MalformedDescriptorError{Descriptor: desc, Token: token, Reason: reason}
	}

	parts := strings.Split(strings.TrimRight(desc, "\x00 \t\r\n"), "/")
	if len(parts) < 3 {
		return nil, fail("", "expected /<address>/<segments>")
	}

	base, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 32)
	if err != nil {
		return nil, fail(parts[1], "invalid base address")
	}

	tokens := strings.Split(parts[2], ",")
	segments := make([]Segment, 0, len(tokens))
	cursor := base

	for _, token := range tokens {
		m := segmentPattern.FindStringSubmatch(token)
		if m == nil {
			return nil, fail(token, "expected <pages>*<size><multiplier><code>")
		}

		pages, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return nil, fail(token, "invalid page count")
		}
		pageSize, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, fail(token, "invalid page size")
		}

		switch m[3] {
		case "K":
			pageSize *= KiB
		case "M":
			pageSize *= MiB
		}

		if pages == 0 || pageSize == 0 {
			return nil, fail(token, "empty segment")
		}
		if pageSize > 0xFFFFFFFF {
			return nil, fail(token, "page size exceeds 32-bit address space")
		}
		size := pages * pageSize
		if cursor+size-1 > 0xFFFFFFFF {
			return nil, fail(token, "segment exceeds 32-bit address space")
		}

		segments = append(segments, Segment{
			StartAddr: uint32(cursor),
			PageCount: uint32(pages),
			PageSize:  uint32(pageSize),
			Code:      m[4][0],
		})

		cursor += size
	}

	return segments, nil
}

// Page is a single erasable page of a segment.
type Page struct {
	// Addr is the page start address
	Addr uint32

	// Size is the page size in bytes
	Size uint32

	// Segment is the index of the owning segment
	Segment int
}

// PagesInRange returns every page, across all segments, that overlaps
// [start, start+length).
func PagesInRange(segments []Segment, start uint32, length int) []Page {
	if length <= 0 {
		return nil
	}

	end := uint64(start) + uint64(length) // exclusive
	var pages []Page
	for n, seg := range segments {
		if uint64(seg.StartAddr) >= end || uint64(seg.EndAddr()) < uint64(start) {
			continue
		}
		for i := uint32(0); i < seg.PageCount; i++ {
			pageStart := uint64(seg.PageAddr(i))
			pageEnd := pageStart + uint64(seg.PageSize)
			if pageStart < end && pageEnd > uint64(start) {
				pages = append(pages, Page{Addr: uint32(pageStart), Size: seg.PageSize, Segment: n})
			}
		}
	}
	return pages
}
