package client

import (
	"encoding/json"
	"fmt"
	"slices"

	"pricescout/crawler/internal/domain"
)

// successMessages are the envelope messages the PX Mart API uses for a successful call.
var successMessages = []string{"操作成功", "success"}

type envelope struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decodeEnvelope validates the success sentinel and decodes data into out.
// failure is the sentinel error returned when the message is not a success.
func decodeEnvelope(body []byte, failure error, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: undecodable response envelope: %w", domain.ErrProtocol, err)
	}

	if !slices.Contains(successMessages, env.Message) {
		return fmt.Errorf("%w: %s", failure, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrData, err)
	}
	return nil
}

// flexString accepts JSON strings and numbers; the API is inconsistent about ids and prices.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
