package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapture(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json object", body: `{"a":1}`, want: `{"a":1}`},
		{name: "json with surrounding whitespace", body: "  [1,2]\n", want: `[1,2]`},
		{name: "empty body", body: "", want: `null`},
		{name: "whitespace only", body: " \t", want: `null`},
		{name: "form encoded", body: "a=1&b=2", want: `"a=1&b=2"`},
		{name: "truncated json", body: `{"a":`, want: `"{\"a\":"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Capture([]byte(tt.body))
			assert.True(t, json.Valid(got))
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "invoice.paid", EventType([]byte(`{"type":"invoice.paid","data":{}}`)))
	assert.Equal(t, "whatsapp_business_account", EventType([]byte(`{"object":"whatsapp_business_account","entry":[]}`)))
	assert.Equal(t, "push", EventType([]byte(`{"type":42,"event":"push"}`)))
	assert.Equal(t, "", EventType([]byte(`[1,2,3]`)))
	assert.Equal(t, "", EventType([]byte(`not json`)))
}
