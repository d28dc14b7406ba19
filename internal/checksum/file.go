package checksum

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	apperrors "billing-tools/internal/common/errors"
)

// FileChecksum is the outcome for a single path. Err is set instead of Checksum
// when the file could not be read or decoded.
type FileChecksum struct {
	Path     string
	Checksum int32
	Err      error
}

// File reads path as UTF-8 text and returns the checksum of its normalized content.
func File(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, apperrors.NewChecksumReadFailedError(path, err)
	}
	if !utf8.Valid(data) {
		return 0, apperrors.NewChecksumInvalidEncodingError(path, firstInvalidByte(data))
	}
	return CRC(Normalize(string(data))), nil
}

// Files checksums every path in order. A failing path never stops the batch.
func Files(paths []string) []FileChecksum {
	results := make([]FileChecksum, 0, len(paths))
	for _, p := range paths {
		sum, err := File(p)
		results = append(results, FileChecksum{Path: p, Checksum: sum, Err: err})
	}
	return results
}

// WriteResults prints "<path> <crc>" or "error <path> <message>" per result.
func WriteResults(w io.Writer, results []FileChecksum) error {
	for _, r := range results {
		var err error
		if r.Err != nil {
			_, err = fmt.Fprintf(w, "error %s %s\n", r.Path, ErrorMessage(r.Err))
		} else {
			_, err = fmt.Fprintf(w, "%s %d\n", r.Path, r.Checksum)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ErrorMessage renders err for a result line.
func ErrorMessage(err error) string {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr.Reason()
	}
	return err.Error()
}

func firstInvalidByte(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}
