// ABOUTME: Copy loop from an audio.Source into an Output
// ABOUTME: Pulls fixed-size blocks until the source ends or ctx is cancelled
package output

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// Pump reads blocks of blockSize samples from src and writes them to out.
// It returns nil once src is exhausted and ctx.Err() if cancelled first.
// out must already be open.
func Pump(ctx context.Context, src audio.Source, out Output, blockSize int) error {
	if blockSize <= 0 {
		blockSize = 1024
	}
	buf := make([]int32, blockSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := audio.Read(src, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		if err := out.Write(buf[:n]); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if n < blockSize {
			return nil
		}
	}
}
