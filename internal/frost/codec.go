package frost

import "context"

// ProgressFunc receives completion fractions in [0, 1] as a long-running
// conversion advances. Implementations must tolerate a nil ProgressFunc.
type ProgressFunc func(fraction float64)

// Codec converts source files to parquet artifacts and back. Both
// directions dispatch on the file extensions of src and dst.
type Codec interface {
	// Compress reads the tabular file at src and writes a parquet
	// artifact to dst, returning the number of data rows written. On
	// failure no partial dst is left behind.
	Compress(ctx context.Context, src, dst string, progress ProgressFunc) (rows int64, err error)

	// Decompress reads the parquet artifact at src and rematerializes it
	// at dst in the format implied by dst's extension. On failure no
	// partial dst is left behind.
	Decompress(ctx context.Context, src, dst string, progress ProgressFunc) error
}
