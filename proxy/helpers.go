package proxy

import (
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeLatin1 decodes a Latin1 string from the reader.
func decodeLatin1(reader io.Reader) (s string, err error) {
	b, err := io.ReadAll(transform.NewReader(reader, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// encodeLatin1 encodes the string as a byte slice using Latin1.
func encodeLatin1(str string) (b []byte, err error) {
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(str))
}
