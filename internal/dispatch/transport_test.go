package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetPrinterWritesTicket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		got <- string(b)
	}()

	p := &NetPrinter{Timeout: 2 * time.Second}
	require.NoError(t, p.Send(context.Background(), Job{Target: ln.Addr().String(), Body: "1x Chopp"}))

	select {
	case s := <-got:
		assert.True(t, strings.HasPrefix(s, escInit+escCodePage860+"1x Chopp"))
		assert.True(t, strings.HasSuffix(s, escCut))
	case <-time.After(3 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestNetPrinterEncodesPC860(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		got <- b
	}()

	p := &NetPrinter{Timeout: 2 * time.Second}
	body := "1x Porção\nObservações: sem gelo ☃"
	require.NoError(t, p.Send(context.Background(), Job{Target: ln.Addr().String(), Body: body}))

	select {
	case b := <-got:
		want := []byte(escInit + escCodePage860 + "1x Por\x87\x84o\nObserva\x87\x94es: sem gelo ?")
		assert.True(t, bytes.HasPrefix(b, want), "got %q", b)
	case <-time.After(3 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestEncodeTicketNormalizesDecomposedText(t *testing.T) {
	// "ç" sebagai c + combining cedilla
	out, err := encodeTicket("Ac\u0327a\u0301")
	require.NoError(t, err)
	assert.Equal(t, "A\x87\xa0", out)
}

func TestNetPrinterErrors(t *testing.T) {
	p := &NetPrinter{Timeout: 500 * time.Millisecond}

	err := p.Send(context.Background(), Job{Body: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	err = p.Send(context.Background(), Job{Target: addr, Body: "x"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestWhatsAppClientSend(t *testing.T) {
	var body waMessage
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &WhatsAppClient{APIURL: srv.URL + "/v20.0/", PhoneID: "123", Token: "tok"}
	err := c.Send(context.Background(), Job{Target: "+55 (11) 99999-0000", Body: "Olá"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "/v20.0/123/messages", path)
	assert.Equal(t, "5511999990000", body.To)
	assert.Equal(t, "whatsapp", body.MessagingProduct)
	assert.Equal(t, "Olá", body.Text.Body)
}

func TestWhatsAppClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &WhatsAppClient{APIURL: srv.URL, PhoneID: "123", Token: "bad"}
	err := c.Send(context.Background(), Job{Target: "5511", Body: "x"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "401")

	none := &WhatsAppClient{APIURL: srv.URL}
	assert.ErrorIs(t, none.Send(context.Background(), Job{Target: "5511"}), ErrNotConfigured)

	noPhone := &WhatsAppClient{APIURL: srv.URL, PhoneID: "1", Token: "t"}
	assert.ErrorIs(t, noPhone.Send(context.Background(), Job{Target: "n/a"}), ErrNotConfigured)
}
