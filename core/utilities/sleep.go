package utilities

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mistvale/vshell/core/registry"
)

// Sleep implements sleep SECONDS, honoring session cancellation the
// way core/eval's checked suspension points do elsewhere.
func Sleep(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	if len(argv) < 2 {
		return fail(stderr, argv[0], fmt.Errorf("usage: sleep SECONDS"))
	}
	secs, err := strconv.ParseFloat(argv[1], 64)
	if err != nil {
		return fail(stderr, argv[0], err)
	}
	dur := time.Duration(secs * float64(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), dur)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			if s.Cancelled() {
				return 130
			}
		}
	}
}
