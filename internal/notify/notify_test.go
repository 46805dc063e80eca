package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxDrain(t *testing.T) {
	inbox := NewInbox(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		inbox.Notify(ctx, Notification{Title: fmt.Sprintf("n%d", i)})
	}

	items := inbox.Drain()
	require.Len(t, items, 3)
	assert.Equal(t, "n2", items[0].Title)
	assert.Equal(t, "n4", items[2].Title)
	assert.False(t, items[0].CreatedAt.IsZero())

	assert.Empty(t, inbox.Drain())
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.Notify(context.Background(), Notification{Title: "Analysis Failed", Severity: SeverityDestructive})
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"title":"Analysis Failed"`)
}

func TestMulti(t *testing.T) {
	a, b := NewInbox(5), NewInbox(5)
	Multi(a, b, Discard).Notify(context.Background(), Notification{Title: "Analysis Complete"})

	assert.Len(t, a.Drain(), 1)
	assert.Len(t, b.Drain(), 1)
}
