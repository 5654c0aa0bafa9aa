package tabix

// reg2bin returns the smallest bin that contains the 0-based half-open
// region [beg, end).
func reg2bin(beg, end int) uint32 {
	end--
	switch {
	case beg>>14 == end>>14:
		return uint32(((1<<15)-1)/7 + (beg >> 14))
	case beg>>17 == end>>17:
		return uint32(((1<<12)-1)/7 + (beg >> 17))
	case beg>>20 == end>>20:
		return uint32(((1<<9)-1)/7 + (beg >> 20))
	case beg>>23 == end>>23:
		return uint32(((1<<6)-1)/7 + (beg >> 23))
	case beg>>26 == end>>26:
		return uint32(((1<<3)-1)/7 + (beg >> 26))
	}
	return 0
}

// reg2bins returns every bin that may hold a record overlapping the 0-based
// half-open region [beg, end).
func reg2bins(beg, end int) []uint32 {
	if end > 1<<29 {
		end = 1 << 29
	}
	if beg >= end {
		return nil
	}
	end--
	bins := []uint32{0}
	for _, level := range [...]struct{ offset, shift uint }{{1, 26}, {9, 23}, {73, 20}, {585, 17}, {4681, 14}} {
		for k := int(level.offset) + beg>>level.shift; k <= int(level.offset)+end>>level.shift; k++ {
			bins = append(bins, uint32(k))
		}
	}
	return bins
}
