package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nmoretto/turnero/pkg/logging"
)

func TestNewSendGridSenderDisabledWithoutKey(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{FromEmail: "turnos@example.com"}, logging.Default())
	assert.Nil(t, s, "no API key means email is off, not misconfigured")
}

func TestNewSendGridSenderDefaultsFromName(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{
		APIKey:    "SG.test",
		FromEmail: "turnos@example.com",
	}, logging.Default())
	if assert.NotNil(t, s) {
		assert.Equal(t, "Turnero", s.fromName)
	}
}
