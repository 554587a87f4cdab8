package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const tempSuffix = ".opspipe-tmp"

// Upload writes size bytes from src to remotePath. The data lands in a
// temporary sibling first; only after the remote size matches is it renamed
// into place. On any failure the temporary file is removed, so the
// destination is either fully replaced or untouched.
func (s *Session) Upload(ctx context.Context, src io.Reader, size int64, remotePath string) (int64, error) {
	tmp := remotePath + tempSuffix
	var stderr bytes.Buffer

	counter := &countingReader{r: src}
	code, err := s.run(ctx, "cat > "+ShellQuote(tmp), counter, &stderr)
	if err == nil && code != 0 {
		err = fmt.Errorf("writing %s exited with status %d: %s", tmp, code, strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		s.cleanup(tmp)
		return 0, err
	}

	remoteSize, err := s.remoteSize(ctx, tmp)
	if err != nil {
		s.cleanup(tmp)
		return 0, err
	}
	if remoteSize != size || counter.n != size {
		s.cleanup(tmp)
		return remoteSize, fmt.Errorf("size mismatch for %s: sent %d of %d bytes, remote has %d", remotePath, counter.n, size, remoteSize)
	}

	stderr.Reset()
	code, err = s.run(ctx, "mv -f "+ShellQuote(tmp)+" "+ShellQuote(remotePath), nil, &stderr)
	if err == nil && code != 0 {
		err = fmt.Errorf("moving into %s exited with status %d: %s", remotePath, code, strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		s.cleanup(tmp)
		return 0, err
	}
	return remoteSize, nil
}

func (s *Session) remoteSize(ctx context.Context, path string) (int64, error) {
	var out bytes.Buffer
	code, err := s.run(ctx, "wc -c < "+ShellQuote(path), nil, &out)
	if err != nil {
		return 0, err
	}
	if code != 0 {
		return 0, fmt.Errorf("reading size of %s exited with status %d: %s", path, code, strings.TrimSpace(out.String()))
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected size output for %s: %q", path, out.String())
	}
	return n, nil
}

// cleanup removes a temporary file on a best-effort basis with its own context,
// since the caller's context may already be done.
func (s *Session) cleanup(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()
	_, _ = s.run(ctx, "rm -f "+ShellQuote(path), nil, nil)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
