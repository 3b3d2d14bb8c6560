package multiagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocol_RequestResponse(t *testing.T) {
	p := NewProtocol("request-response")
	assert.True(t, p.Accepts(Message{Type: "request"}))
	assert.True(t, p.Accepts(Message{Type: "response"}))
	assert.False(t, p.Accepts(Message{Type: "bid"}))
}

func TestProtocol_Broadcast(t *testing.T) {
	p := NewProtocol("broadcast")
	assert.True(t, p.Accepts(Message{To: Broadcast}))
	assert.False(t, p.Accepts(Message{To: "agent-1"}))
}

func TestProtocol_ContractNet(t *testing.T) {
	p := NewProtocol("contract-net")
	for _, typ := range []string{"cfp", "proposal", "award", "reject"} {
		assert.True(t, p.Accepts(Message{Type: typ}), typ)
	}
	assert.False(t, p.Accepts(Message{Type: "bid"}))
}

func TestProtocol_Auction(t *testing.T) {
	p := NewProtocol("auction")
	for _, typ := range []string{"bid", "accept", "reject"} {
		assert.True(t, p.Accepts(Message{Type: typ}), typ)
	}
	assert.False(t, p.Accepts(Message{Type: "cfp"}))
}

func TestProtocol_UnknownNameAcceptsEverything(t *testing.T) {
	p := NewProtocol("whatever-this-is")
	assert.True(t, p.Accepts(Message{Type: "anything", To: "x"}))
}

func TestMessage_ValidRequiresFromAndTo(t *testing.T) {
	m := NewMessage("a", "b", "hi", "", nil)
	assert.True(t, m.Valid())
	assert.Equal(t, "message", m.Type)
	assert.NotEmpty(t, m.ID)
}
