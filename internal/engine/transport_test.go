package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransport_Send_WritesSingleLine(t *testing.T) {
	var buf bytes.Buffer
	tr := newLineTransport(&buf, zap.NewNop())

	err := tr.Send(Request{
		ID:     1,
		Method: "add_download",
		Params: map[string]any{"url": "https://example.com/f.iso"},
	})
	require.NoError(t, err)

	expected := `{"id":1,"method":"add_download","params":{"url":"https://example.com/f.iso"}}` + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestTransport_Send_DefaultsParamsToEmptyObject(t *testing.T) {
	var buf bytes.Buffer
	tr := newLineTransport(&buf, zap.NewNop())

	err := tr.Send(Request{ID: 2, Method: "get_global_stats"})
	require.NoError(t, err)

	assert.Equal(t, `{"id":2,"method":"get_global_stats","params":{}}`+"\n", buf.String())
}

func TestTransport_ReadLines_DispatchesInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"event":"download-started","data":{"id":"a"}}`,
		`{"id":1,"result":{"ok":true}}`,
		`{"event":"download-finished","data":{"id":"a"}}`,
	}, "\n") + "\n"

	tr := newLineTransport(&bytes.Buffer{}, zap.NewNop())

	var got []Inbound
	tr.readLines(strings.NewReader(input), func(msg Inbound) {
		got = append(got, msg)
	})

	require.Len(t, got, 3)
	assert.Equal(t, "download-started", got[0].Event)
	assert.True(t, got[1].IsReply())
	assert.Equal(t, uint64(1), *got[1].ID)
	assert.Equal(t, "download-finished", got[2].Event)
}

func TestTransport_ReadLines_StripsCarriageReturn(t *testing.T) {
	tr := newLineTransport(&bytes.Buffer{}, zap.NewNop())

	var got []Inbound
	tr.readLines(strings.NewReader("{\"event\":\"ping\"}\r\n"), func(msg Inbound) {
		got = append(got, msg)
	})

	require.Len(t, got, 1)
	assert.Equal(t, "ping", got[0].Event)
}

func TestTransport_ReadLines_DropsUnparseableLines(t *testing.T) {
	input := strings.Join([]string{
		`this is not json`,
		`{"event":"ok"}`,
		`{"truncated":`,
		`{"id":7,"result":null}`,
	}, "\n") + "\n"

	tr := newLineTransport(&bytes.Buffer{}, zap.NewNop())

	var got []Inbound
	tr.readLines(strings.NewReader(input), func(msg Inbound) {
		got = append(got, msg)
	})

	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Event)
	assert.Equal(t, uint64(7), *got[1].ID)
}

func TestTransport_ReadLines_SkipsEmptyLines(t *testing.T) {
	tr := newLineTransport(&bytes.Buffer{}, zap.NewNop())

	var count int
	tr.readLines(strings.NewReader("\n\n{\"event\":\"ok\"}\n\n"), func(Inbound) {
		count++
	})

	assert.Equal(t, 1, count)
}

func TestInbound_Classification(t *testing.T) {
	id := uint64(3)

	reply := Inbound{ID: &id}
	assert.True(t, reply.IsReply())
	assert.False(t, reply.IsEvent())

	event := Inbound{Event: "global-stats"}
	assert.False(t, event.IsReply())
	assert.True(t, event.IsEvent())
}
