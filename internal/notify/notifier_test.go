package notify

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSender) SendMessage(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return s.err
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func testTrain() models.Train {
	return models.Train{
		Number: "108Ш",
		From:   models.TrainEndpoint{Code: "2208001", StationTrain: "Одеса-Головна", Time: "21:25", SourceDate: "2019-01-03"},
		To:     models.TrainEndpoint{Code: "2218000", StationTrain: "Львів", Time: "05:40", SourceDate: "2019-01-04"},
	}
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "4 seats at 108Ш train Одеса-Головна - Львів 2019-01-03 21:25 - 05:40", FormatMessage(testTrain(), 4))
}

func TestNotifier(t *testing.T) {
	t.Run("sends when gate is open", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier(NewGate(true), sender, slog.Default())

		n.Notify(context.Background(), testTrain(), 4)

		require.Len(t, sender.sent(), 1)
		assert.Contains(t, sender.sent()[0], "108Ш")
	})

	t.Run("re-checks gate at call time", func(t *testing.T) {
		sender := &recordingSender{}
		gate := NewGate(true)
		n := NewNotifier(gate, sender, slog.Default())

		gate.SetEnabled(false)
		n.Notify(context.Background(), testTrain(), 4)

		assert.Empty(t, sender.sent())
	})

	t.Run("logs delivery failures without propagating", func(t *testing.T) {
		var buf bytes.Buffer
		sender := &recordingSender{err: assert.AnError}
		n := NewNotifier(NewGate(true), sender, logging.NewStructuredLogger(&buf, slog.LevelInfo))

		n.Notify(context.Background(), testTrain(), 4)

		assert.Len(t, sender.sent(), 1, "no retry")
		assert.Contains(t, buf.String(), `"msg":"failed to send notification"`)
		assert.Contains(t, buf.String(), `"component":"notifier"`)
	})
}

func TestGateConcurrentAccess(t *testing.T) {
	gate := NewGate(true)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			gate.SetEnabled(v)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = gate.Enabled()
		}()
	}
	wg.Wait()

	gate.SetEnabled(true)
	assert.True(t, gate.Enabled())
}

func TestCommands(t *testing.T) {
	gate := NewGate(true)
	commands := NewCommands(gate)

	reply, ok := commands.Handle("/stop")
	require.True(t, ok)
	assert.Equal(t, ReplyStopping, reply)
	assert.False(t, gate.Enabled())

	reply, ok = commands.Handle("/status")
	require.True(t, ok)
	assert.Equal(t, ReplyRunning, reply)
	assert.False(t, gate.Enabled(), "status does not touch the gate")

	reply, ok = commands.Handle("/start@seatwatch_bot")
	require.True(t, ok)
	assert.Equal(t, ReplyStarting, reply)
	assert.True(t, gate.Enabled())

	_, ok = commands.Handle("hello")
	assert.False(t, ok)

	_, ok = commands.Handle("/unknown")
	assert.False(t, ok)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := LogSender{Logger: logging.NewStructuredLogger(&buf, slog.LevelInfo)}

	require.NoError(t, sender.SendMessage(context.Background(), "3 seats"))
	assert.Contains(t, buf.String(), `"text":"3 seats"`)
}

func TestCommandListenerIgnoresOtherChats(t *testing.T) {
	gate := NewGate(true)
	sender := &recordingSender{}
	listener := NewCommandListener(nil, 42, NewCommands(gate), sender, slog.Default())

	listener.handle(context.Background(), 7, "/stop")
	assert.True(t, gate.Enabled())
	assert.Empty(t, sender.sent())

	listener.handle(context.Background(), 42, "/stop")
	assert.False(t, gate.Enabled())
	assert.Equal(t, []string{ReplyStopping}, sender.sent())

	listener.handle(context.Background(), 42, "just chatting")
	assert.Len(t, sender.sent(), 1)
}
