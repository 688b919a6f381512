package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

// SSEDialer opens a server-sent events stream over HTTP.
type SSEDialer struct {
	URL    string
	Client *http.Client
}

func NewSSEDialer(url string) *SSEDialer {
	// No client timeout: the stream is expected to stay open.
	return &SSEDialer{URL: url, Client: &http.Client{}}
}

func (d *SSEDialer) Dial(ctx context.Context) (EventReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, cortexErrors.FromStatus(resp.StatusCode, "stream rejected")
	}

	return NewSSEReader(resp.Body), nil
}

type sseReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewSSEReader decodes SSE frames from body. Each Next call returns the
// joined data lines of one event.
func NewSSEReader(body io.ReadCloser) EventReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	return &sseReader{body: body, scanner: scanner}
}

func (r *sseReader) Next() ([]byte, error) {
	dataLines := make([]string, 0, 1)

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			if len(dataLines) == 0 {
				continue
			}
			return []byte(strings.Join(dataLines, "\n")), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimPrefix(line, "data:")
			if strings.HasPrefix(payload, " ") {
				payload = payload[1:]
			}
			dataLines = append(dataLines, payload)
		}
		// event:, id: and retry: carry nothing the console uses.
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}
	if len(dataLines) > 0 {
		return []byte(strings.Join(dataLines, "\n")), nil
	}
	return nil, io.EOF
}

func (r *sseReader) Close() error {
	return r.body.Close()
}
