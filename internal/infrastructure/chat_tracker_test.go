package infrastructure

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wppserver/internal/entities"
	"wppserver/internal/interfaces"
)

func trackedMessage(remoteID, body string, ts int64, fromMe bool) interfaces.DriverMessage {
	return interfaces.DriverMessage{
		Message:  entities.Message{Body: body, Timestamp: ts, FromMe: fromMe},
		RemoteID: remoteID,
	}
}

func TestSummariesOrderedByRecency(t *testing.T) {
	tr := newChatTracker()
	tr.Record(trackedMessage("a@s.whatsapp.net", "old", 100, false), "Alice")
	tr.Record(trackedMessage("b@s.whatsapp.net", "newer", 200, false), "Bob")
	tr.Record(trackedMessage("a@s.whatsapp.net", "newest", 300, false), "Alice")

	summaries := tr.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "a@s.whatsapp.net", summaries[0].ID)
	assert.Equal(t, "Alice", summaries[0].Name)
	assert.Equal(t, int64(300), summaries[0].Timestamp)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "newest", summaries[0].LastMessage.Body)
	assert.Equal(t, "b@s.whatsapp.net", summaries[1].ID)
}

func TestUnreadCountResetsOnOwnMessage(t *testing.T) {
	tr := newChatTracker()
	tr.Record(trackedMessage("a@s.whatsapp.net", "hi", 1, false), "Alice")
	tr.Record(trackedMessage("a@s.whatsapp.net", "there", 2, false), "Alice")

	summaries := tr.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	tr.Record(trackedMessage("a@s.whatsapp.net", "reply", 3, true), "")
	assert.Equal(t, 0, tr.Summaries()[0].UnreadCount)
}

func TestRecentLimitsAndCopies(t *testing.T) {
	tr := newChatTracker()
	for i := 1; i <= 5; i++ {
		tr.Record(trackedMessage("a@s.whatsapp.net", fmt.Sprintf("m%d", i), int64(i), false), "")
	}

	recent := tr.Recent("a@s.whatsapp.net", 3)
	require.Len(t, recent, 3)
	assert.Equal(t, "m3", recent[0].Body)
	assert.Equal(t, "m5", recent[2].Body)

	// Mutating the returned slice must not touch the tracker's state.
	recent[0].Body = "mutated"
	assert.Equal(t, "m3", tr.Recent("a@s.whatsapp.net", 3)[0].Body)

	assert.Nil(t, tr.Recent("ghost", 3))
}

func TestRecentRingIsBounded(t *testing.T) {
	tr := newChatTracker()
	for i := 1; i <= trackedMessages+10; i++ {
		tr.Record(trackedMessage("a@s.whatsapp.net", fmt.Sprintf("m%d", i), int64(i), false), "")
	}

	all := tr.Recent("a@s.whatsapp.net", 0)
	require.Len(t, all, trackedMessages)
	assert.Equal(t, "m11", all[0].Body)
	assert.Equal(t, fmt.Sprintf("m%d", trackedMessages+10), all[len(all)-1].Body)
}

func TestContactNameNotOverwrittenByOwnMessages(t *testing.T) {
	tr := newChatTracker()
	tr.Record(trackedMessage("a@s.whatsapp.net", "hi", 1, false), "Alice")
	tr.Record(trackedMessage("a@s.whatsapp.net", "reply", 2, true), "Me")

	assert.Equal(t, "Alice", tr.Summaries()[0].Name)
}
