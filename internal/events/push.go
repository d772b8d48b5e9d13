package events

const TypeSaleUpdate = "sale:update"

// PushMessage is what the /ws channel sends for every event.
type PushMessage struct {
	Type    string      `json:"type"`
	Payload PushPayload `json:"payload"`
}

type PushPayload struct {
	SaleID string `json:"saleId"`
}

func NewPushMessage(e Event) PushMessage {
	return PushMessage{Type: TypeSaleUpdate, Payload: PushPayload{SaleID: e.SaleID}}
}
