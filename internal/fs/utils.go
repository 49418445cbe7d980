package fs

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// blocks returns the number of 512-byte blocks needed for size bytes.
func blocks(size int64) uint64 {
	return safeInt64ToUint64((size + 511) / 512)
}
