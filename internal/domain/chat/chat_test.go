package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/molino-storefront/internal/domain/failure"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{line: `data: {"delta":"Hel"}`, want: "Hel", wantOK: true},
		{line: `data:{"delta":"lo"}`, want: "lo", wantOK: true},
		{line: "data: {\"delta\":\"x\"}\r", want: "x", wantOK: true},
		{line: `data: {"type":"start","delta":"a","extra":{"n":1}}`, want: "a", wantOK: true},
		{line: `data: {"delta":""}`, want: "", wantOK: true},
		{line: `data: {"type":"done"}`},
		{line: `data: {"delta":42}`},
		{line: `data: [DONE]`},
		{line: `data: {"delta":`},
		{line: `data:`},
		{line: `event: message`},
		{line: `not-a-data-line`},
		{line: ``},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseLine([]byte(tt.line))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeltaDecoder_SplitAcrossChunks(t *testing.T) {
	var d DeltaDecoder
	var got []string

	got = append(got, d.Feed([]byte(`data: {"del`))...)
	assert.Empty(t, got)
	got = append(got, d.Feed([]byte("ta\":\"Hel\"}\ndata: {\"delta\":\"lo\"}\nnot-a-"))...)
	got = append(got, d.Feed([]byte("data-line\ndata: {\"delta\":\"!\"}"))...)
	got = append(got, d.Flush()...)

	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
	assert.Empty(t, d.Flush(), "flush resets the decoder")
}

func TestReadReply(t *testing.T) {
	stream := "data: {\"delta\":\"Hel\"}\n" +
		"data: {\"delta\":\"lo\"}\n" +
		"not-a-data-line\n"

	reply, err := ReadReply(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)

	// One byte at a time exercises every split point.
	reply, err = ReadReply(iotest.OneByteReader(strings.NewReader(stream)))
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)
}

func TestReadReply_ReadError(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("data: {\"delta\":\"partial\"}\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)
	reply, err := ReadReply(r)
	require.Error(t, err)
	assert.Equal(t, "partial", reply)
}

// --- Mock implementations ---

type mockAssistant struct {
	mu        sync.Mutex
	creates   int
	createErr error
	stream    string
	sendErr   error
	sentTo    []string
}

func (m *mockAssistant) CreateConversation(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return "", m.createErr
	}
	return "conv-1", nil
}

func (m *mockAssistant) SendMessage(_ context.Context, id, _ string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentTo = append(m.sentTo, id)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return io.NopCloser(strings.NewReader(m.stream)), nil
}

type mockRepo struct {
	mu      sync.Mutex
	data    map[string]State
	loadErr error
	saveErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{data: map[string]State{}}
}

func (m *mockRepo) Load(_ context.Context, session string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	st, ok := m.data[session]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *mockRepo) Save(_ context.Context, session string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[session] = st
	return nil
}

// --- Bridge ---

func TestBridge_Send(t *testing.T) {
	a := &mockAssistant{stream: "data: {\"delta\":\"Hel\"}\ndata: {\"delta\":\"lo\"}\nnot-a-data-line\n"}
	b := NewBridge(a)

	reply, err := b.Send(context.Background(), "conv-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)
}

func TestBridge_Failures(t *testing.T) {
	b := NewBridge(&mockAssistant{createErr: errors.New("401")})
	_, err := b.OpenConversation(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	b = NewBridge(&mockAssistant{sendErr: errors.New("500")})
	_, err = b.Send(context.Background(), "conv-1", "hi")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = b.Send(context.Background(), "", "hi")
	var vErr *failure.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Missing required parameters", vErr.Message)

	cfgErr := &failure.ConfigError{Component: "PlayLab", Missing: []string{"PLAYLAB_API_KEY"}}
	b = NewBridge(&mockAssistant{createErr: cfgErr})
	_, err = b.OpenConversation(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	var gotCfg *failure.ConfigError
	require.ErrorAs(t, err, &gotCfg)
}

// --- Sessions ---

func TestSessions_InitialState(t *testing.T) {
	s := NewSessions(NewBridge(&mockAssistant{}), newMockRepo())

	st, err := s.State(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, RoleAssistant, st.Messages[0].Role)
	assert.Equal(t, Welcome, st.Messages[0].Content)
	assert.Empty(t, st.ConversationID)
	assert.False(t, st.Open)
}

func TestSessions_ConversationCreatedOnce(t *testing.T) {
	a := &mockAssistant{stream: "data: {\"delta\":\"Hola\"}\n"}
	repo := newMockRepo()
	s := NewSessions(NewBridge(a), repo)
	ctx := context.Background()

	st, err := s.Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", st.ConversationID)
	assert.True(t, st.Open)

	_, err = s.Open(ctx, "s1")
	require.NoError(t, err)

	st, err = s.Send(ctx, "s1", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, 1, a.creates, "cached id is reused")
	assert.Equal(t, []string{"conv-1"}, a.sentTo)
	require.Len(t, st.Messages, 3)
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, st.Messages[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Hola"}, st.Messages[2])

	// A fresh Sessions over the same repository (a reload) keeps the id.
	s2 := NewSessions(NewBridge(a), repo)
	_, err = s2.Send(ctx, "s1", "again")
	require.NoError(t, err)
	assert.Equal(t, 1, a.creates)
}

func TestSessions_SendCreatesConversationLazily(t *testing.T) {
	a := &mockAssistant{stream: "data: {\"delta\":\"ok\"}\n"}
	s := NewSessions(NewBridge(a), newMockRepo())

	st, err := s.Send(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", st.ConversationID)
	assert.Equal(t, 1, a.creates)
}

func TestSessions_SendFailureAppendsApology(t *testing.T) {
	a := &mockAssistant{sendErr: errors.New("upstream 502")}
	repo := newMockRepo()
	s := NewSessions(NewBridge(a), repo)

	st, err := s.Send(context.Background(), "s1", "hi")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Len(t, st.Messages, 3)
	assert.Equal(t, Message{Role: RoleAssistant, Content: Apology}, st.Messages[2])
	assert.Equal(t, st, repo.data["s1"], "apology is persisted")
}

func TestSessions_OpenFailureStillSavesView(t *testing.T) {
	a := &mockAssistant{createErr: errors.New("down")}
	repo := newMockRepo()
	s := NewSessions(NewBridge(a), repo)

	st, err := s.Open(context.Background(), "s1")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, st.Open)
	assert.Empty(t, st.ConversationID)
	assert.True(t, repo.data["s1"].Open)
}

func TestSessions_SetViewAndReset(t *testing.T) {
	a := &mockAssistant{stream: "data: {\"delta\":\"x\"}\n"}
	s := NewSessions(NewBridge(a), newMockRepo())
	ctx := context.Background()

	_, err := s.Send(ctx, "s1", "hi")
	require.NoError(t, err)

	st, err := s.SetView(ctx, "s1", true, true)
	require.NoError(t, err)
	assert.True(t, st.Open)
	assert.True(t, st.Minimized)
	assert.Len(t, st.Messages, 3)

	st, err = s.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, InitialState(), st)

	_, err = s.Send(ctx, "s1", "new")
	require.NoError(t, err)
	assert.Equal(t, 2, a.creates, "reset drops the conversation")
}

func TestSessions_CorruptStateFallsBack(t *testing.T) {
	repo := newMockRepo()
	repo.loadErr = errors.Wrap(ErrCorruptState, "unexpected byte")
	s := NewSessions(NewBridge(&mockAssistant{}), repo)

	st, err := s.State(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, InitialState(), st)
}

func TestSessions_Errors(t *testing.T) {
	s := NewSessions(NewBridge(&mockAssistant{}), newMockRepo())
	_, err := s.Send(context.Background(), "s1", "   ")
	var vErr *failure.ValidationError
	require.ErrorAs(t, err, &vErr)

	repo := newMockRepo()
	repo.loadErr = errors.New("db down")
	s = NewSessions(NewBridge(&mockAssistant{}), repo)
	_, err = s.State(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptState)
}

func TestStateCodec(t *testing.T) {
	st := State{
		Messages:       []Message{{Role: RoleAssistant, Content: Welcome}, {Role: RoleUser, Content: "¿Tienen tamales?"}},
		ConversationID: "conv-9",
		Open:           true,
	}
	got, err := Unmarshal(Marshal(st))
	require.NoError(t, err)
	assert.Equal(t, st, got)

	got, err = Unmarshal(Marshal(InitialState()))
	require.NoError(t, err)
	assert.Equal(t, InitialState(), got)

	for _, raw := range []string{
		`garbage`,
		`{"messages":[{"role":"system","content":"x"}]}`,
		`{"messages":"nope"}`,
		`{"isOpen":"yes"}`,
	} {
		_, err := Unmarshal([]byte(raw))
		require.ErrorIs(t, err, ErrCorruptState, raw)
	}
}
