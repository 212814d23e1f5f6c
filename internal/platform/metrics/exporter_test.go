package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/foobar-daemon/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewExporter_Disabled(t *testing.T) {
	t.Parallel()

	e, err := NewExporter("", discardLogger())
	require.NoError(t, err)

	assert.False(t, e.Enabled())
	assert.Empty(t, e.Addr())
	assert.NotNil(t, e.Meter("test"))
	assert.NoError(t, e.Serve(context.Background()))
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestExporter_ServesMetricsAndHealth(t *testing.T) {
	e, err := NewExporter("127.0.0.1:0", discardLogger())
	require.NoError(t, err)
	require.True(t, e.Enabled())

	counter, err := e.Meter("test").Int64Counter("foobar_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	base := "http://" + e.Addr()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	status, body := get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "foobar_test_events_total")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `service_name="foobar-daemon"`)

	status, _ = get(t, base+"/missing")
	assert.Equal(t, http.StatusNotFound, status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestNewExporter_AddressInUse(t *testing.T) {
	first, err := NewExporter("127.0.0.1:0", discardLogger())
	require.NoError(t, err)
	defer func() { _ = first.Shutdown(context.Background()) }()

	_, err = NewExporter(first.Addr(), discardLogger())
	require.Error(t, err)

	var obsErr *logger.ObservabilityError
	require.True(t, errors.As(err, &obsErr))
	assert.Equal(t, "metrics listener", obsErr.Subsystem)
}
