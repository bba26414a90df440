// Package logging forwards the process log to Logstash.
package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// LogstashWriter ships log lines to a Logstash TCP input from a background
// goroutine. Write never blocks on the network: lines are queued and dropped
// when the queue is full or Logstash is unreachable.
type LogstashWriter struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration

	queue   chan []byte
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	dropped uint64
	dial    func(network, addr string, timeout time.Duration) (net.Conn, error)
}

type Option func(*LogstashWriter)

func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.dialTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.writeTimeout = d }
}

// WithRetryInterval sets the pause after a failed connect or write.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) { w.retryInterval = d }
}

// WithQueueSize bounds the number of lines waiting to be shipped.
func WithQueueSize(n int) Option {
	return func(w *LogstashWriter) {
		if n > 0 {
			w.queue = make(chan []byte, n)
		}
	}
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	w := &LogstashWriter{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		queue:         make(chan []byte, 1024),
		done:          make(chan struct{}),
		dial:          net.DialTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := make([]byte, len(p), len(p)+1)
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case w.queue <- line:
	default:
		w.dropped++
	}
	return len(p), nil
}

// Dropped reports how many lines were discarded because the queue was full.
func (w *LogstashWriter) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close stops accepting lines, flushes what is queued on a best-effort
// basis and closes the connection.
func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *LogstashWriter) run() {
	defer w.wg.Done()

	var conn net.Conn
	var nextRetry time.Time
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	send := func(line []byte) {
		if conn == nil {
			if time.Now().Before(nextRetry) {
				return
			}
			c, err := w.dial("tcp", w.addr, w.dialTimeout)
			if err != nil {
				nextRetry = time.Now().Add(w.retryInterval)
				return
			}
			conn = c
		}
		if w.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
		}
		if _, err := conn.Write(line); err != nil {
			_ = conn.Close()
			conn = nil
			nextRetry = time.Now().Add(w.retryInterval)
		}
	}

	for {
		select {
		case line := <-w.queue:
			send(line)
		case <-w.done:
			for {
				select {
				case line := <-w.queue:
					send(line)
				default:
					return
				}
			}
		}
	}
}
