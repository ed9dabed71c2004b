package logstream

import (
	"bufio"
	"io"
	"sync"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
)

// maxLineSize allows for application stack traces, which routinely exceed
// bufio.Scanner's default 64 KiB token limit.
const maxLineSize = 1 << 20

// Stats describes how much service output has passed through a Streamer.
type Stats struct {
	Lines    int64
	Bytes    int64
	LastLine time.Time
}

// Streamer forwards a service's merged stdout+stderr pipe into the
// structured logger, one line per entry. The service's output is opaque
// application text; it is relayed, never parsed.
type Streamer struct {
	serviceName string
	logger      logging.Logger

	mu       sync.Mutex
	lines    int64
	bytes    int64
	lastLine time.Time

	done chan struct{}
}

func New(serviceName string, logger logging.Logger) *Streamer {
	return &Streamer{
		serviceName: serviceName,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run consumes the stream on a background goroutine and returns immediately.
// The stream is closed when it is exhausted, which happens when the service
// process exits.
func (s *Streamer) Run(stream io.ReadCloser) {
	go s.readLoop(stream)
}

// Done is closed once the service's output stream has been fully consumed.
func (s *Streamer) Done() <-chan struct{} {
	return s.done
}

func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Lines:    s.lines,
		Bytes:    s.bytes,
		LastLine: s.lastLine,
	}
}

func (s *Streamer) readLoop(stream io.ReadCloser) {
	defer close(s.done)
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		s.record(len(line))

		if line == "" {
			continue
		}
		s.logger.Infof("[%s] %s", s.serviceName, line)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warnf("Error reading service output, service: %s, error: %v", s.serviceName, err)
		// Keep draining so the service never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stream)
	}
}

func (s *Streamer) record(lineLen int) {
	s.mu.Lock()
	s.lines++
	s.bytes += int64(lineLen)
	s.lastLine = time.Now()
	s.mu.Unlock()
}
