package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsAppClient posts text messages to the WhatsApp Cloud API.
type WhatsAppClient struct {
	APIURL  string // e.g. https://graph.facebook.com/v20.0
	PhoneID string
	Token   string
	HTTP    *http.Client
}

type waText struct {
	Body string `json:"body"`
}

type waMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

func (c *WhatsAppClient) Send(ctx context.Context, j Job) error {
	if c.Token == "" || c.PhoneID == "" || c.APIURL == "" {
		return fmt.Errorf("%w: whatsapp credentials missing", ErrNotConfigured)
	}
	to := normalizePhone(j.Target)
	if to == "" {
		return fmt.Errorf("%w: no destination phone", ErrNotConfigured)
	}

	b, err := json.Marshal(waMessage{MessagingProduct: "whatsapp", To: to, Type: "text", Text: waText{Body: j.Body}})
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.APIURL, "/") + "/" + c.PhoneID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: whatsapp status %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// normalizePhone keeps digits only ("+55 (11) 9..." -> "5511 9...").
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
