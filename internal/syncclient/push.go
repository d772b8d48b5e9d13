package syncclient

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/ariefcatur/go-bar-pos/internal/events"
)

// PushListener keeps a websocket to the API open and forwards sale updates
// to the client. Reconnects back off up to MaxBackoff, which defaults to the
// poll interval so push is never slower than polling to recover.
type PushListener struct {
	URL        string // ws://host:port/ws
	Client     *Client
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Log        *log.Logger
}

func (p *PushListener) logf(format string, args ...any) {
	if p.Log != nil {
		p.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run blocks until ctx is done.
func (p *PushListener) Run(ctx context.Context) {
	minB, maxB := p.MinBackoff, p.MaxBackoff
	if minB <= 0 {
		minB = 500 * time.Millisecond
	}
	if maxB <= 0 {
		maxB = p.Client.PollInterval()
	}
	backoff := minB

	for ctx.Err() == nil {
		connected, err := p.session(ctx)
		p.Client.SetPushConnected(false)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = minB
		}
		p.logf("push: disconnected: %v (retry in %s)", err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxB {
			backoff = maxB
		}
	}
}

// session dials once and reads until the connection breaks.
func (p *PushListener) session(ctx context.Context) (bool, error) {
	conn, br, _, err := ws.Dial(ctx, p.URL)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
		defer ws.PutReader(br)
	}

	// tutup koneksi saat ctx selesai supaya read di bawah ikut berhenti
	stop := make(chan struct{})
	defer close(stop)
	go func(c net.Conn) {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-stop:
		}
	}(conn)

	p.Client.SetPushConnected(true)
	// sinkron ulang: event selama terputus mungkin hilang
	p.Client.Refresh()

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			return true, err
		}
		if op != ws.OpText {
			continue
		}
		var msg events.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logf("push: bad message: %v", err)
			continue
		}
		p.Client.HandlePush(msg)
	}
}
