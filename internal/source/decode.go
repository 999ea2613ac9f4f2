// SPDX-License-Identifier: MIT

package source

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

var errTooLarge = errors.New("size limit exceeded")

// readLimited reads at most limit bytes from r; one byte more is an error.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

// decodeBody returns the XMLTV text carried by r. Gzip is detected by its
// magic bytes, independent of file names and Content-Encoding, since guide
// hosts commonly serve .xml.gz as application/octet-stream. The limit
// applies to the decompressed size.
func decodeBody(r io.Reader, limit int64) ([]byte, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !bytes.Equal(head, gzipMagic) {
		return readLimited(br, limit)
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return readLimited(zr, limit)
}
