package format

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/eak1mov/go-skytiles/tile"
)

func Compress(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}

	if compression != CompressionGzip {
		return nil, fmt.Errorf("%w: compression not supported (%v)", tile.ErrInvalidArgument, compression)
	}

	var buffer bytes.Buffer
	writer, _ := gzip.NewWriterLevel(&buffer, gzip.BestCompression)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}

	return buffer.Bytes(), nil
}

func Decompress(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}

	if compression != CompressionGzip {
		return nil, fmt.Errorf("%w: compression not supported (%v)", tile.ErrDataFormat, compression)
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress: %w", tile.ErrDataFormat, err)
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress: %w", tile.ErrDataFormat, err)
	}

	return result, nil
}
