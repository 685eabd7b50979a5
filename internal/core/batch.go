package core

import (
	"context"

	"github.com/pbnjay/memory"
)

// DefaultBatchSize is used on devices with at least 4 GiB of memory.
const DefaultBatchSize = 100

const gib = 1 << 30

// BatchSizeFor returns the row batch size for a device with totalMemory
// bytes of physical memory. Unknown memory (0) gets the default.
func BatchSizeFor(totalMemory uint64) int {
	switch {
	case totalMemory == 0:
		return DefaultBatchSize
	case totalMemory < 2*gib:
		return 25
	case totalMemory < 4*gib:
		return 50
	default:
		return DefaultBatchSize
	}
}

// detectBatchSize sizes batches from this machine's physical memory.
func detectBatchSize() int {
	return BatchSizeFor(memory.TotalMemory())
}

// eachBatch lists rows in batches of size and hands every non-empty batch
// to fn. ctx is checked before each batch.
func eachBatch[T any](ctx context.Context, size int, list func(offset, limit int) ([]T, error), fn func([]T) error) error {
	for offset := 0; ; offset += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := list(offset, size)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
		if len(rows) < size {
			return nil
		}
	}
}
