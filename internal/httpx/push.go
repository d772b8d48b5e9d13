package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/ariefcatur/go-bar-pos/internal/events"
)

const (
	pushBuffer       = 64
	pushWriteTimeout = 5 * time.Second
	pushPingInterval = 30 * time.Second
)

// clients tracks open push connections so shutdown can close them;
// hijacked connections are not closed by http.Server.Shutdown.
type clients struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func (c *clients) add(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns == nil {
		c.conns = map[net.Conn]struct{}{}
	}
	c.conns[conn] = struct{}{}
}

func (c *clients) remove(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn)
}

func (c *clients) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for conn := range c.conns {
		_ = conn.Close()
	}
	c.conns = nil
}

// CloseClients disconnects every push client. Tablets reconnect on their own.
func (a *API) CloseClients() { a.clients.closeAll() }

// push upgrades to a websocket and forwards every recorded event as a
// "sale:update" message. A client that falls behind loses messages; the
// tablet's periodic poll covers the gap.
func (a *API) push(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	a.clients.add(conn)
	a.gaugePush(1)

	out := make(chan events.Event, pushBuffer)
	sub := a.Events.Subscribe(func(e events.Event) error {
		select {
		case out <- e:
		default:
		}
		return nil
	})

	wc := &wsConn{conn: conn}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// baca sampai client putus; pong/close dibalas lewat wc
		_ = wc.readLoop()
	}()

	defer func() {
		sub.Unsubscribe()
		a.clients.remove(conn)
		a.gaugePush(-1)
		_ = conn.Close()
	}()

	ping := time.NewTicker(pushPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case e := <-out:
			b, err := json.Marshal(events.NewPushMessage(e))
			if err != nil {
				continue
			}
			if err := wc.send(ws.OpText, b); err != nil {
				return
			}
		case <-ping.C:
			if err := wc.send(ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}

// wsConn serializes frame writes. The event loop and the control frame
// replies of the reader share one connection; a frame is several writes.
type wsConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *wsConn) send(op ws.OpCode, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(pushWriteTimeout))
	return wsutil.WriteServerMessage(c.conn, op, b)
}

// writeFrames writes already encoded frames in one go.
func (c *wsConn) writeFrames(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(pushWriteTimeout))
	_, err := c.conn.Write(b)
	return err
}

// control answers ping and close frames. The reply is encoded into a buffer
// first and then written under the lock.
func (c *wsConn) control(h ws.Header, r io.Reader) error {
	var buf bytes.Buffer
	err := wsutil.ControlFrameHandler(&buf, ws.StateServerSide)(h, r)
	if werr := c.writeFrames(buf.Bytes()); err == nil {
		err = werr
	}
	return err
}

// readLoop discards client data frames until the connection ends.
func (c *wsConn) readLoop() error {
	rd := wsutil.Reader{
		Source:         c.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: c.control,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return err
		}
		if hdr.OpCode.IsControl() {
			if err := c.control(hdr, &rd); err != nil {
				return err
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return err
		}
	}
}

func (a *API) gaugePush(delta float64) {
	if a.Metrics != nil {
		a.Metrics.PushClients.Add(delta)
	}
}
