package engine

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// maxLineSize bounds a single protocol line. Download lists can get
// large, so this is generous.
const maxLineSize = 4 * 1024 * 1024

// lineTransport frames newline-delimited JSON over the engine
// process's stdio streams.
type lineTransport struct {
	stdin   io.Writer
	writeMu sync.Mutex

	log *zap.Logger
}

func newLineTransport(stdin io.Writer, log *zap.Logger) *lineTransport {
	return &lineTransport{
		stdin: stdin,
		log:   log.Named("transport"),
	}
}

// Send serializes the request to a single line and writes it to the
// engine's stdin. The line is written in one Write call so that
// concurrent senders never interleave.
func (t *lineTransport) Send(req Request) error {
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_, err = t.stdin.Write(data)
	return err
}

// readLines reads the engine's stdout line by line and hands every
// parseable message to handle, in arrival order. Unparseable lines
// are logged and dropped; they never terminate the loop. The loop
// returns when the stream ends.
func (t *lineTransport) readLines(r io.Reader, handle func(Inbound)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		var msg Inbound
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.log.Warn("dropping unparseable line",
				zap.Error(err),
				zap.String("line", line),
			)
			continue
		}

		handle(msg)
	}

	if err := scanner.Err(); err != nil {
		t.log.Debug("stdout stream closed", zap.Error(err))
	}
}

// drainStderr forwards the engine's stderr to the log sink line by
// line. Stderr never participates in protocol framing.
func drainStderr(r io.Reader, log *zap.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	log = log.Named("engine")

	for scanner.Scan() {
		log.Info(scanner.Text())
	}
}
