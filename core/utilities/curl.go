package utilities

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/juju/ratelimit"
	"github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/registry"
)

// curlRateBytesPerSec matches the teacher's 2mbps commands/curl.go throttle.
const curlRateBytesPerSec = 2 * 1000 * 1000

// Curl implements a policy-gated curl URL [-o FILE] [-s], refusing
// outright when the session was built with networking disabled, per
// spec.md §1's Non-goals default. Grounded on commands/curl.go's flag
// set and its ratelimit.Reader throttle, routed through the session's
// injected Fetcher instead of a live net/http.Client so the sandbox
// never makes a real network call unless a caller explicitly wires one.
func Curl(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	if !s.NetworkEnabled() {
		return fail(stderr, argv[0], fmt.Errorf("network access disabled for this session"))
	}
	it, ok := s.(*eval.Interp)
	if !ok {
		return fail(stderr, argv[0], fmt.Errorf("curl requires a full session"))
	}

	set := getopt.New()
	silent := set.Bool('s', "silent mode")
	output := set.StringLong("output", 'o', "", "write to FILE rather than stdout")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()
	if len(args) == 0 {
		return fail(stderr, argv[0], fmt.Errorf("usage: curl [-s] [-o FILE] URL"))
	}
	rawURL := args[0]
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}

	body, status, err := it.Fetch(rawURL)
	if err != nil {
		return fail(stderr, argv[0], err)
	}
	if !*silent {
		fmt.Fprintf(stderr, "curl: HTTP %d, %d bytes\n", status, len(body))
	}

	tokenBucket := ratelimit.NewBucketWithRate(curlRateBytesPerSec, curlRateBytesPerSec)
	reader := ratelimit.Reader(bytes.NewReader(body), tokenBucket)

	if *output != "" && *output != "-" {
		f, err := s.Filesystem().Create(*output)
		if err != nil {
			return fail(stderr, argv[0], err)
		}
		defer f.Close()
		if _, err := io.Copy(f, reader); err != nil {
			return fail(stderr, argv[0], err)
		}
		return 0
	}
	if _, err := io.Copy(stdout, reader); err != nil {
		return fail(stderr, argv[0], err)
	}
	return 0
}
