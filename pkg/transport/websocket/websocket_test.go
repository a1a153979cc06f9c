package websocket

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

// readAll reads until n bytes are received or times out.
func readAll(t *testing.T, tr *Transport, n int) []byte {
	var got []byte
	buf := make([]byte, 2)
	deadline := time.Now().Add(time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		c, err := tr.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:c]...)
	}
	return got
}

func TestTransportEcho(t *testing.T) {
	server := httptest.NewServer(Handler(func(tr *Transport) {
		buf := make([]byte, 16)
		for {
			n, err := tr.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				if _, err = tr.Write(buf[:n]); err != nil {
					return
				}
			}
		}
	}))
	defer server.Close()

	tr, err := Dial("ws"+strings.TrimPrefix(server.URL, "http"), "")
	require.NoError(t, err)

	n, err := tr.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n)

	msg := []byte{0xF0, 0x79, 0x02, 0x05, 0xF7}
	_, err = tr.Write(msg)
	require.NoError(t, err)
	require.Equal(t, msg, readAll(t, tr, len(msg)))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	_, err = tr.Read(make([]byte, 1))
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
	_, err = tr.Write(msg)
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
}

func TestTransportServerClosed(t *testing.T) {
	server := httptest.NewServer(Handler(func(tr *Transport) {}))
	defer server.Close()

	tr, err := Dial("ws"+strings.TrimPrefix(server.URL, "http"), "")
	require.NoError(t, err)
	defer tr.Close()

	deadline := time.Now().Add(time.Second)
	for {
		_, err = tr.Read(make([]byte, 1))
		if err != nil || time.Now().After(deadline) {
			break
		}
	}
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
}

func TestTransportReadsBeforeClosed(t *testing.T) {
	server := httptest.NewServer(Handler(func(tr *Transport) {
		tr.Write([]byte{0xE4, 127})
		tr.Write([]byte{7})
	}))
	defer server.Close()

	tr, err := Dial("ws"+strings.TrimPrefix(server.URL, "http"), "")
	require.NoError(t, err)
	defer tr.Close()

	// let both messages and the close arrive before reading.
	time.Sleep(100 * time.Millisecond)
	var got []byte
	buf := make([]byte, 1)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		var n int
		n, err = tr.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			break
		}
	}
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
	require.Equal(t, []byte{0xE4, 127, 7}, got)
}
