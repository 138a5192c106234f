package history

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil)
		if codecErr != nil {
			return
		}

		decoder, codecErr = zstd.NewReader(nil)
	})

	return encoder, decoder, codecErr
}

// compress returns data zstd-compressed; empty input stays empty
func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	_, dec, err := codec()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress diagnostics: %w", err)
	}

	return out, nil
}
