package storage

import "database/sql"

// FrameIterator walks the raw buffers of a recorded session in capture
// order. Usage follows the sql.Rows pattern:
//
//	for it.Next() {
//	    process(it.Data())
//	}
//	if err := it.Err(); err != nil { ... }
type FrameIterator struct {
	rows *sql.Rows
	data []byte
	err  error
}

// Next advances to the next frame. It returns false when the iteration
// ends, either by exhaustion or by error.
func (it *FrameIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}

	if err := it.rows.Scan(&it.data); err != nil {
		it.err = err
		return false
	}
	return true
}

// Data returns the current frame buffer. It is only valid until the
// next call to Next.
func (it *FrameIterator) Data() []byte {
	return it.data
}

// Err returns the first error encountered during iteration.
func (it *FrameIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

// Close releases the underlying result set.
func (it *FrameIterator) Close() error {
	return it.rows.Close()
}
