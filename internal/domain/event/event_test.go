package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestEvent_Subject(t *testing.T) {
	tests := []struct {
		name     string
		evt      Event
		expected string
	}{
		{
			name:     "user wins over ip",
			evt:      Event{UserID: strPtr("user-1"), IPAddress: strPtr("203.0.113.10")},
			expected: "user-1",
		},
		{
			name:     "ip when no user",
			evt:      Event{IPAddress: strPtr("203.0.113.10")},
			expected: "203.0.113.10",
		},
		{
			name:     "empty user falls through to ip",
			evt:      Event{UserID: strPtr(""), IPAddress: strPtr("203.0.113.10")},
			expected: "203.0.113.10",
		},
		{
			name:     "neither",
			evt:      Event{MerchantID: uuid.New()},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.evt.Subject())
		})
	}
}

func TestEvent_CredentialType(t *testing.T) {
	assert.Equal(t, "", (&Event{}).CredentialType())
	assert.Equal(t, "", (&Event{Payload: map[string]interface{}{}}).CredentialType())
	assert.Equal(t, "", (&Event{Payload: map[string]interface{}{"credential_type": 42}}).CredentialType())
	assert.Equal(t, "api_key",
		(&Event{Payload: map[string]interface{}{"credential_type": "api_key"}}).CredentialType())
}

func TestEvent_Presence(t *testing.T) {
	evt := &Event{}
	assert.False(t, evt.HasUser())
	assert.False(t, evt.HasIP())
	assert.False(t, evt.HasUserAgent())

	evt = &Event{UserID: strPtr(""), IPAddress: strPtr(""), UserAgent: strPtr("")}
	assert.False(t, evt.HasUser())
	assert.False(t, evt.HasIP())
	assert.False(t, evt.HasUserAgent())

	evt = &Event{
		UserID:    strPtr("user-1"),
		IPAddress: strPtr("203.0.113.10"),
		UserAgent: strPtr("curl/8.0"),
	}
	assert.True(t, evt.HasUser())
	assert.True(t, evt.HasIP())
	assert.True(t, evt.HasUserAgent())
}
