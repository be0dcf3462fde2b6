package transport

import (
	"encoding/json"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Envelope is the wire frame for every socket message in both directions.
type Envelope struct {
	Event types.EventType `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeEvent marshals a payload into an envelope frame. Group sends share
// the resulting bytes, so marshaling happens once per event.
func encodeEvent(event types.EventType, payload any) ([]byte, error) {
	var (
		data json.RawMessage
		err  error
	)
	if payload != nil {
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
