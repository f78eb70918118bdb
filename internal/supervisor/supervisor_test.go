package supervisor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestBlocksUntilMatchingResponse(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 4)
	sess := NewSession(events, nil)

	result := make(chan Response, 1)
	go func() {
		e := NewEvent(EventRequestInput, "action.deploy")
		r, err := sess.Request(context.Background(), e)
		require.NoError(t, err)
		result <- r
	}()

	sent := <-events
	require.Equal(t, EventRequestInput, sent.Kind)

	sess.Dispatch(Response{ID: sent.ID, Kind: ResponseValue})

	select {
	case r := <-result:
		require.Equal(t, ResponseValue, r.Kind)
	case <-time.After(time.Second):
		t.Fatal("request never resolved")
	}
}

func TestRequestRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 4)
	sess := NewSession(events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := sess.Request(ctx, NewEvent(EventRequestInput, "action.deploy"))
		done <- err
	}()
	<-events
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("request did not observe cancellation")
	}
}

func TestDispatchRoutesControlMessagesSeparately(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 1)
	sess := NewSession(events, nil)

	sess.Dispatch(Response{Kind: ResponseCancel})

	select {
	case r := <-sess.Control():
		require.Equal(t, ResponseCancel, r.Kind)
	case <-time.After(time.Second):
		t.Fatal("control message never delivered")
	}
}

func TestDispatchDropsResponseWithNoOpenRequest(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 1)
	sess := NewSession(events, nil)

	// must not panic or block
	sess.Dispatch(Response{ID: "unknown", Kind: ResponseValue})
}

func TestStdioTransportRoundTripsEventAndResponse(t *testing.T) {
	t.Parallel()

	engineToOperator := &bytes.Buffer{}
	operatorToEngine := &bytes.Buffer{}

	engineSide := NewStdioTransport(operatorToEngine, engineToOperator)
	operatorSide := NewStdioTransport(engineToOperator, operatorToEngine)

	e := NewEvent(EventProgress, "action.deploy")
	e.Phase = "broadcasting"
	require.NoError(t, engineSide.WriteEvent(e))

	got, err := operatorSide.ReadEvent()
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)
	require.Equal(t, "broadcasting", got.Phase)

	resp := Response{ID: e.ID, Kind: ResponseValue}
	require.NoError(t, operatorSide.WriteResponse(resp))

	gotResp, err := engineSide.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, resp.ID, gotResp.ID)
}
