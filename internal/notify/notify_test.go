package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/taskboard/internal/model"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func testEvent() model.TaskEvent {
	task := model.NewTask("t1", "Fix *prod*", "d", "u1", "admin",
		time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	task.Status = model.TaskStatusWorkingOn
	task.Priority = model.PriorityHigh
	return model.TaskEvent{
		Kind:     model.TaskEventReceived,
		Task:     *task,
		Assignee: &model.UserRef{ID: "u1", Name: "Jane_Doe", Email: "jane@example.com"},
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Working On", Label("working_on"))
	assert.Equal(t, "Urgent", Label("urgent"))
}

func TestFormatEvent(t *testing.T) {
	text := FormatEvent(testEvent(), func(s string) string { return "<" + s + ">" })

	assert.Contains(t, text, "*Task Received*")
	assert.Contains(t, text, "*<Fix *prod*>*")
	assert.Contains(t, text, "Assignee: <Jane_Doe>")
	assert.Contains(t, text, "Status: `Working On`")
	assert.Contains(t, text, "Priority: `High`")
	assert.Contains(t, text, "Deadline: 2026-06-01 18:30 UTC")
	assert.NotContains(t, text, "Category")

	event := testEvent()
	event.Assignee = nil
	event.Task.Category = "ops"
	text = FormatEvent(event, func(s string) string { return s })
	assert.Contains(t, text, "Assignee: unknown user")
	assert.Contains(t, text, "Category: ops")
}

func TestTelegram_NotifyTask(t *testing.T) {
	api := &fakeSender{}
	tg := &Telegram{api: api, chatID: 42, log: lgr.NoOp}

	require.NoError(t, tg.NotifyTask(context.Background(), testEvent()))
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, `Fix \*prod\*`)
	assert.Contains(t, msg.Text, `Jane\_Doe`)
}

func TestTelegram_NotifyTaskErrors(t *testing.T) {
	api := &fakeSender{err: errors.New("chat not found")}
	tg := &Telegram{api: api, chatID: 42, log: lgr.NoOp}

	err := tg.NotifyTask(context.Background(), testEvent())
	assert.ErrorContains(t, err, "chat not found")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.NotifyTask(ctx, testEvent()), context.Canceled)
	assert.Len(t, api.sent, 1)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.NotifyTask(context.Background(), testEvent()))
}
