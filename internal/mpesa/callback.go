package mpesa

// Callback payload shapes for the Daraja STK push result notification.

// CallbackEnvelope is the outer structure posted to the callback endpoint.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback carries the result of one collection request.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata holds the name/value pairs attached to a successful result.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is one name/value pair in the callback metadata.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// Value returns the metadata item with the given name, if present.
func (m *CallbackMetadata) Value(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, item := range m.Item {
		if item.Name == name {
			return item.Value, true
		}
	}
	return nil, false
}

// Ack is the fixed acknowledgement payload the provider expects back.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Accepted is the acknowledgement returned for every processed callback.
func Accepted() Ack {
	return Ack{ResultCode: 0, ResultDesc: "Accepted"}
}
