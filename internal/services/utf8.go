package services

// Utf8Boundary returns the length of the longest prefix of b that does not
// end in the middle of a multi-byte UTF-8 sequence. Bytes after the returned
// index are an incomplete trailing sequence that should be held back until
// more input arrives.
//
// Only the tail of b is inspected. Invalid bytes earlier in the buffer are
// left for the lossy decoder to replace.
func Utf8Boundary(b []byte) int {
	n := len(b)
	if n == 0 {
		return 0
	}
	if b[n-1] < 0x80 {
		return n
	}

	// Walk back over continuation bytes (10xxxxxx) to the leading byte.
	i := n - 1
	for i > 0 && b[i]&0xC0 == 0x80 {
		i--
	}

	lead := b[i]
	expected := 4
	switch {
	case lead < 0xC0:
		expected = 1
	case lead < 0xE0:
		expected = 2
	case lead < 0xF0:
		expected = 3
	}

	if n-i >= expected {
		return n
	}
	return i
}
