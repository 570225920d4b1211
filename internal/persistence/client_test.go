package persistence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/slayer-suite/internal/module"
)

func sampleDocument(payload string) Document {
	return Document{
		Type:        DocumentType,
		Version:     DocumentVersion,
		Saved:       time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		ProjectName: "Tower",
		Apps: map[string]AppEntry{
			"mapping": {Version: "1.0.0", Active: true, Data: module.Data{"notes": payload}},
			"design":  {Version: "1.0.0"},
		},
	}
}

func TestClientRoundTripSmallDocumentUncompressed(t *testing.T) {
	defer goleak.VerifyNone(t)
	client := NewClient(DefaultCompressThreshold)
	defer client.Close()

	doc := sampleDocument("small")
	data, err := client.Serialize(context.Background(), doc)
	require.NoError(t, err)
	require.False(t, IsCompressed(data))

	back, err := client.Deserialize(context.Background(), data)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestClientCompressesAboveThresholdWithProgress(t *testing.T) {
	defer goleak.VerifyNone(t)
	var (
		mu     sync.Mutex
		phases []string
	)
	client := NewClient(256,
		ClientWithOptions(Options{ChunkSize: 128, Compress: true, IncludeProgress: true}),
		ClientWithProgress(func(p Progress) {
			mu.Lock()
			phases = append(phases, p.Phase)
			mu.Unlock()
		}),
	)
	defer client.Close()

	doc := sampleDocument(strings.Repeat("exit sign ", 200))
	data, err := client.Serialize(context.Background(), doc)
	require.NoError(t, err)
	require.True(t, IsCompressed(data))

	back, err := client.Deserialize(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, doc.Apps["mapping"].Data["notes"], back.Apps["mapping"].Data["notes"])

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, phases, PhaseCompress)
	require.Equal(t, PhaseDone, phases[len(phases)-1])
}

func TestClientRefusesSecondHeavyRequest(t *testing.T) {
	defer goleak.VerifyNone(t)
	firstProgress := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	client := NewClient(DefaultCompressThreshold, ClientWithProgress(func(Progress) {
		once.Do(func() {
			close(firstProgress)
			<-unblock
		})
	}))

	done := make(chan error, 1)
	go func() {
		_, err := client.Serialize(context.Background(), sampleDocument("x"))
		done <- err
	}()
	<-firstProgress

	_, err := client.Deserialize(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrWorkerBusy)
	_, err = client.Serialize(context.Background(), sampleDocument("y"))
	require.ErrorIs(t, err, ErrWorkerBusy)

	close(unblock)
	require.NoError(t, <-done)

	_, err = client.Ping(context.Background())
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestClientSurfacesWorkerFailures(t *testing.T) {
	defer goleak.VerifyNone(t)
	client := NewClient(DefaultCompressThreshold)
	_, err := client.Deserialize(context.Background(), []byte(`{"type":"spreadsheet","apps":{}}`))
	require.ErrorIs(t, err, ErrWorkerFailure)
	var workerErr *WorkerError
	require.True(t, errors.As(err, &workerErr))
	require.NotEmpty(t, workerErr.ID)
	require.Contains(t, workerErr.Message, "unsupported document")

	require.NoError(t, client.Close())
	_, err = client.Ping(context.Background())
	require.ErrorIs(t, err, ErrWorkerClosed)
}
