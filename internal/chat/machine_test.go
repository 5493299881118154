package chat

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/chatterm/internal/protocol"
)

type fakeSender struct {
	frames []string
	err    error
}

func (s *fakeSender) Send(frame string) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSender) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	out := make([]protocol.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

type fakeComposer struct {
	text    string
	focused int
}

func (c *fakeComposer) Text() string        { return c.text }
func (c *fakeComposer) SetText(text string) { c.text = text }
func (c *fakeComposer) Focus()              { c.focused++ }

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *fakeSender, *fakeComposer) {
	t.Helper()
	sender := &fakeSender{}
	composer := &fakeComposer{}
	m := New("alice", sender, composer, opts...)
	return m, sender, composer
}

func usersFrame(t *testing.T, names ...string) string {
	t.Helper()
	frame, err := protocol.Encode(protocol.NewUsers(names))
	require.NoError(t, err)
	return frame
}

func messageFrame(t *testing.T, from, text string) string {
	t.Helper()
	payload, err := protocol.EncodeChatMessage(protocol.ChatMessage{From: from, Message: text})
	require.NoError(t, err)
	frame, err := protocol.Encode(protocol.NewMessage(payload))
	require.NoError(t, err)
	return frame
}

func TestNewSendsRegisterFirst(t *testing.T) {
	m, sender, _ := newTestMachine(t)

	envs := sender.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, protocol.KindRegister, envs[0].Kind)
	assert.Equal(t, "alice", envs[0].Payload())

	snap := m.Snapshot()
	assert.Empty(t, snap.Roster)
	assert.Empty(t, snap.History)
	assert.False(t, snap.EmojiPickerOpen)
	assert.NotEmpty(t, m.SessionID())
}

func TestNewToleratesFailingSender(t *testing.T) {
	sender := &fakeSender{err: errors.New("channel closed")}
	m := New("alice", sender, nil)
	assert.Empty(t, sender.frames)
	assert.False(t, m.Closed())
}

func TestScenarioUsersThenMessage(t *testing.T) {
	m, _, _ := newTestMachine(t)

	assert.True(t, m.HandleFrame(`{"messageType":"users","dataArray":["alice","bob"],"data":null}`))
	assert.True(t, m.HandleFrame(`{"messageType":"message","dataArray":null,"data":"{\"from\":\"alice\",\"message\":\"hi\"}"}`))

	snap := m.Snapshot()
	require.Len(t, snap.Roster, 2)
	assert.Equal(t, "alice", snap.Roster[0].Name)
	assert.Equal(t, "bob", snap.Roster[1].Name)
	assert.Equal(t, []protocol.ChatMessage{{From: "alice", Message: "hi"}}, snap.History)

	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Known)
	assert.Equal(t, AvatarURL(DefaultAvatarTemplate, "alice"), entries[0].AvatarURL)
}

func TestUsersReplacesRosterWholesale(t *testing.T) {
	m, _, _ := newTestMachine(t)

	m.HandleFrame(usersFrame(t, "alice", "bob", "carol"))
	m.HandleFrame(usersFrame(t, "dave", "dave"))

	snap := m.Snapshot()
	require.Len(t, snap.Roster, 2)
	assert.Equal(t, "dave", snap.Roster[0].Name)
	assert.Equal(t, "dave", snap.Roster[1].Name)
}

func TestUsersWithoutListClearsRoster(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.HandleFrame(usersFrame(t, "alice"))

	assert.True(t, m.HandleFrame(`{"messageType":"users","dataArray":null,"data":null}`))
	assert.Empty(t, m.Snapshot().Roster)
}

func TestRandomSequencesKeepRosterAndHistoryInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"alice", "bob", "carol", "dave"}

	for run := 0; run < 50; run++ {
		m, _, _ := newTestMachine(t)
		var lastRoster []string
		var sent []protocol.ChatMessage

		for step := 0; step < 40; step++ {
			if rng.Intn(3) == 0 {
				n := rng.Intn(len(names) + 1)
				roster := make([]string, n)
				for i := range roster {
					roster[i] = names[rng.Intn(len(names))]
				}
				m.HandleFrame(usersFrame(t, roster...))
				lastRoster = roster
				continue
			}
			msg := protocol.ChatMessage{From: names[rng.Intn(len(names))], Message: fmt.Sprintf("m%d", step)}
			m.HandleFrame(messageFrame(t, msg.From, msg.Message))
			sent = append(sent, msg)
		}

		snap := m.Snapshot()
		gotRoster := make([]string, 0, len(snap.Roster))
		for _, p := range snap.Roster {
			gotRoster = append(gotRoster, p.Name)
		}
		if lastRoster == nil {
			assert.Empty(t, gotRoster)
		} else {
			assert.Equal(t, lastRoster, gotRoster)
		}
		if sent == nil {
			assert.Empty(t, snap.History)
		} else {
			assert.Equal(t, sent, snap.History)
		}
	}
}

func TestMalformedFramesLeaveStateUntouched(t *testing.T) {
	var reported []error
	m, _, _ := newTestMachine(t, WithErrorHandler(func(err error) { reported = append(reported, err) }))
	m.HandleFrame(usersFrame(t, "alice"))
	m.HandleFrame(messageFrame(t, "alice", "first"))
	before := m.Snapshot()

	bad := []string{
		`{"messageType":"users","dataArr`,
		`not json at all`,
		`{"messageType":"message","data":"{\"from\":"}`,
		`{"messageType":"message","data":null}`,
		`{"dataArray":["mallory"]}`,
	}
	for _, frame := range bad {
		assert.False(t, m.HandleFrame(frame), frame)
	}
	assert.Equal(t, before, m.Snapshot())
	require.Len(t, reported, len(bad))

	var perr *ProtocolError
	assert.True(t, errors.As(reported[0], &perr))
	var derr *protocol.DecodeError
	assert.True(t, errors.As(reported[0], &derr))

	assert.True(t, m.HandleFrame(messageFrame(t, "alice", "second")))
	assert.Len(t, m.Snapshot().History, 2)
}

func TestUnknownKindIsIgnored(t *testing.T) {
	var reported []error
	m, _, _ := newTestMachine(t, WithErrorHandler(func(err error) { reported = append(reported, err) }))

	assert.False(t, m.HandleFrame(`{"messageType":"typing","data":"bob"}`))
	assert.False(t, m.HandleFrame(`{"messageType":"register","data":"bob"}`))
	assert.Empty(t, reported)
	assert.Empty(t, m.Snapshot().Roster)
}

func TestStrictDecodingReportsUnknownKind(t *testing.T) {
	var reported []error
	m, _, _ := newTestMachine(t,
		WithStrictDecoding(true),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)

	assert.False(t, m.HandleFrame(`{"messageType":"typing","data":"bob"}`))
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], protocol.ErrUnknownKind)
}

func TestSubmitMessageBlankIsNoop(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		m, sender, _ := newTestMachine(t)
		before := m.Snapshot()

		assert.False(t, m.SubmitMessage(raw))
		assert.Len(t, sender.frames, 1, "only the register frame")
		assert.Equal(t, before, m.Snapshot())
	}
}

func TestSubmitMessageSendsUntrimmedText(t *testing.T) {
	m, sender, _ := newTestMachine(t)

	assert.True(t, m.SubmitMessage("  hello "))
	envs := sender.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, protocol.KindMessage, envs[1].Kind)
	assert.Equal(t, "  hello ", envs[1].Payload())
}

func TestSubmitClearsComposer(t *testing.T) {
	m, sender, composer := newTestMachine(t)
	composer.text = "hello"

	assert.True(t, m.Submit())
	assert.Equal(t, "", composer.text)

	envs := sender.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, "hello", envs[1].Payload())
}

func TestSubmitSwallowsSendFailure(t *testing.T) {
	m, sender, composer := newTestMachine(t)
	sender.err = errors.New("buffer full")
	composer.text = "hello"

	assert.True(t, m.Submit())
	assert.Equal(t, "", composer.text)
	assert.Len(t, sender.frames, 1)
}

func TestToggleEmojiPickerTwice(t *testing.T) {
	m, _, _ := newTestMachine(t)

	assert.True(t, m.ToggleEmojiPicker())
	assert.True(t, m.EmojiPickerOpen())
	assert.True(t, m.ToggleEmojiPicker())
	assert.False(t, m.EmojiPickerOpen())
}

func TestInsertEmoji(t *testing.T) {
	m, _, composer := newTestMachine(t)
	composer.text = "hi"
	m.ToggleEmojiPicker()

	assert.True(t, m.InsertEmoji("😀"))
	assert.Equal(t, "hi😀", composer.text)
	assert.False(t, m.EmojiPickerOpen())
	assert.Equal(t, 1, composer.focused)

	// Already closed picker stays closed
	m.InsertEmoji("🚀")
	assert.Equal(t, "hi😀🚀", composer.text)
	assert.False(t, m.EmojiPickerOpen())
}

func TestCloseTurnsOperationsIntoNoops(t *testing.T) {
	m, sender, composer := newTestMachine(t)
	m.HandleFrame(usersFrame(t, "alice"))
	m.HandleFrame(messageFrame(t, "alice", "hi"))

	m.Close()
	assert.True(t, m.Closed())
	assert.Empty(t, m.Snapshot().History)

	composer.text = "late"
	assert.False(t, m.HandleFrame(messageFrame(t, "alice", "again")))
	assert.False(t, m.Submit())
	assert.False(t, m.ToggleEmojiPicker())
	assert.False(t, m.InsertEmoji("😀"))
	m.Register()

	assert.Empty(t, m.Snapshot().History)
	assert.Len(t, sender.frames, 1)
	assert.Equal(t, "late", composer.text)
	m.Close()
}

func TestRegisterResends(t *testing.T) {
	m, sender, _ := newTestMachine(t)
	m.Register()

	envs := sender.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, protocol.KindRegister, envs[1].Kind)
}
