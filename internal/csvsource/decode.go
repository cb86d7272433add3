package csvsource

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw CSV bytes to text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is stripped; otherwise the input is read as UTF-8
// with invalid sequences replaced.
func Decode(raw []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("decode csv: %w", err)
	}
	return string(out), nil
}

// ReadText reads at most maxBytes from r and decodes it. maxBytes <= 0 means
// no limit.
func ReadText(r io.Reader, maxBytes int64) (string, error) {
	raw, err := readLimited(r, maxBytes)
	if err != nil {
		return "", err
	}
	return Decode(raw)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return raw, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}
	return raw, nil
}
