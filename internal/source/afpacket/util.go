package afpacket

import (
	"fmt"
)

const (
	tpacketAlignment = 16      // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52      // TPACKET3_HDRLEN, rounded
	maxBlockSize     = 4 << 20 // kernel refuses larger blocks on most configs
	preferredBlock   = 1 << 20
)

// recomputeSize derives AF_PACKET ring geometry from a memory budget.
//
// The ring requires:
//  1. frameSize a multiple of TPACKET_ALIGNMENT and at least header + snapLen
//  2. blockSize a multiple of both pageSize and frameSize
//  3. blockSize * numBlocks close to ringBufferSizeMB
func recomputeSize(ringBufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if ringBufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ringBufferSizeMB must be positive, got %d", ringBufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	targetBytes := ringBufferSizeMB * 1024 * 1024

	frameSize = roundUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// Page-sized frames make the block a single frame.
		frameSize = roundUp(frameSize, pageSize)
		blockSize = frameSize
	}
	if blockSize < preferredBlock {
		blockSize *= preferredBlock / blockSize
	}

	numBlocks = targetBytes / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func roundUp(n, multiple int) int {
	return ((n + multiple - 1) / multiple) * multiple
}

// gcd computes the greatest common divisor of two integers
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// lcm computes the least common multiple of two integers
func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return (a / gcd(a, b)) * b
}
