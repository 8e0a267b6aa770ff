package runtime_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/intervention"
	"github.com/hupe1980/agentbus/runtime"
	"github.com/hupe1980/agentbus/subscription"
)

type ping struct {
	Text string
}

func (ping) MessageType() string { return "runtime_test.ping" }

type pong struct {
	Text string
}

func (pong) MessageType() string { return "runtime_test.pong" }

type testAgent struct {
	id core.AgentID
}

func (a *testAgent) ID() core.AgentID { return a.id }

func (a *testAgent) Metadata() core.AgentMetadata {
	return core.AgentMetadata{Type: a.id.Type, Key: a.id.Key, Description: "test agent"}
}

func (a *testAgent) SaveState() (map[string]any, error) { return map[string]any{}, nil }

func (a *testAgent) LoadState(map[string]any) error { return nil }

type echoAgent struct {
	testAgent
}

func newEchoAgent(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
	return &echoAgent{testAgent{id: id}}, nil
}

func (a *echoAgent) OnMessage(_ context.Context, msg core.Message, _ *core.MessageContext) (core.Message, error) {
	p, ok := msg.(ping)
	if !ok {
		return nil, core.ErrCantHandle
	}

	return pong{Text: p.Text}, nil
}

type counterAgent struct {
	testAgent

	mu    sync.Mutex
	count int
}

func newCounterAgent(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
	return &counterAgent{testAgent: testAgent{id: id}}, nil
}

func (a *counterAgent) OnMessage(context.Context, core.Message, *core.MessageContext) (core.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++

	return nil, nil
}

func (a *counterAgent) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.count
}

func (a *counterAgent) SaveState() (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return map[string]any{"count": a.count}, nil
}

func (a *counterAgent) LoadState(state map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := state["count"].(int); ok {
		a.count = v
	}

	return nil
}

type faultyAgent struct {
	testAgent
	err error
}

func (a *faultyAgent) OnMessage(context.Context, core.Message, *core.MessageContext) (core.Message, error) {
	return nil, a.err
}

type blockingAgent struct {
	testAgent
}

func (a *blockingAgent) OnMessage(ctx context.Context, _ core.Message, _ *core.MessageContext) (core.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func stopWhenIdle(t *testing.T, handle *runtime.RunHandle) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, handle.StopWhenIdle(ctx))
}

func TestSendRoundTrip(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	result, err := rt.Send(context.Background(), ping{Text: "hello"}, core.NewAgentID("echo", "default"))
	require.NoError(t, err)
	require.Equal(t, pong{Text: "hello"}, result)

	stopWhenIdle(t, handle)

	assert.True(t, rt.Idle())
	assert.Zero(t, rt.OutstandingTasks())
	assert.Zero(t, rt.UnprocessedMessages())
}

func TestSendUnknownRecipient(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Send(context.Background(), ping{}, core.NewAgentID("missing", "default"))
	require.ErrorIs(t, err, core.ErrRecipientNotFound)
}

func TestSendSurfacesHandlerError(t *testing.T) {
	rt := runtime.New()

	errBoom := errors.New("boom")

	_, err := rt.Register("faulty", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return &faultyAgent{testAgent: testAgent{id: id}, err: errBoom}, nil
	})
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	_, err = rt.Send(context.Background(), ping{}, core.NewAgentID("faulty", "default"))
	require.ErrorIs(t, err, errBoom)

	stopWhenIdle(t, handle)
}

func TestSendTimeout(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Register("blocking", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return &blockingAgent{testAgent{id: id}}, nil
	})
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	token := core.NewCancellationToken()

	_, err = rt.Send(context.Background(), ping{}, core.NewAgentID("blocking", "default"), func(o *core.SendOptions) {
		o.Timeout = 50 * time.Millisecond
		o.CancellationToken = token
	})
	require.ErrorIs(t, err, core.ErrTimedOut)

	// Unblock the handler so the runtime can drain.
	token.Cancel()

	stopWhenIdle(t, handle)
}

func TestSendCancellation(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Register("blocking", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return &blockingAgent{testAgent{id: id}}, nil
	})
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	token := core.NewCancellationToken()

	go func() {
		time.Sleep(20 * time.Millisecond)
		token.Cancel()
	}()

	_, err = rt.Send(context.Background(), ping{}, core.NewAgentID("blocking", "default"), func(o *core.SendOptions) {
		o.CancellationToken = token
	})
	require.ErrorIs(t, err, core.ErrCancelled)

	stopWhenIdle(t, handle)
}

func TestPublishFanOut(t *testing.T) {
	rt := runtime.New()

	alpha := &counterAgent{}
	beta := &counterAgent{}

	_, err := rt.Register("alpha", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		alpha.id = id
		return alpha, nil
	})
	require.NoError(t, err)

	_, err = rt.Register("beta", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		beta.id = id
		return beta, nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "alpha")))
	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "beta")))

	handle, err := rt.Start()
	require.NoError(t, err)

	require.NoError(t, rt.Publish(context.Background(), ping{Text: "extra"}, core.NewTopicID("news", "default")))

	stopWhenIdle(t, handle)

	assert.Equal(t, 1, alpha.Count())
	assert.Equal(t, 1, beta.Count())
}

func TestPublishExcludesSender(t *testing.T) {
	rt := runtime.New()

	alpha := &counterAgent{}
	beta := &counterAgent{}

	_, err := rt.Register("alpha", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		alpha.id = id
		return alpha, nil
	})
	require.NoError(t, err)

	_, err = rt.Register("beta", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		beta.id = id
		return beta, nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "alpha")))
	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "beta")))

	handle, err := rt.Start()
	require.NoError(t, err)

	sender := core.NewAgentID("alpha", "default")

	require.NoError(t, rt.Publish(context.Background(), ping{}, core.NewTopicID("news", "default"), func(o *core.PublishOptions) {
		o.Sender = &sender
	}))

	stopWhenIdle(t, handle)

	assert.Zero(t, alpha.Count())
	assert.Equal(t, 1, beta.Count())
}

func TestPublishIsolatesRecipientFailure(t *testing.T) {
	rt := runtime.New()

	counter := &counterAgent{}

	_, err := rt.Register("faulty", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return &faultyAgent{testAgent: testAgent{id: id}, err: errors.New("boom")}, nil
	})
	require.NoError(t, err)

	_, err = rt.Register("counter", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		counter.id = id
		return counter, nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "faulty")))
	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "counter")))

	handle, err := rt.Start()
	require.NoError(t, err)

	require.NoError(t, rt.Publish(context.Background(), ping{}, core.NewTopicID("news", "default")))

	stopWhenIdle(t, handle)

	assert.Equal(t, 1, counter.Count())
}

func TestPublishUndeliverableHandler(t *testing.T) {
	rt := runtime.New()

	var (
		mu     sync.Mutex
		lostID string
	)

	rt.SetUndeliverableHandler(func(_ core.Message, _ *core.AgentID, _ core.TopicID, messageID string) {
		mu.Lock()
		defer mu.Unlock()

		lostID = messageID
	})

	handle, err := rt.Start()
	require.NoError(t, err)

	require.NoError(t, rt.Publish(context.Background(), ping{}, core.NewTopicID("nowhere", "default"), func(o *core.PublishOptions) {
		o.MessageID = "msg-1"
	}))

	stopWhenIdle(t, handle)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "msg-1", lostID)
}

type droppingHandler struct {
	intervention.Passthrough
}

func (droppingHandler) OnSend(_ context.Context, _ core.Message, _ *core.AgentID, _ core.AgentID) (core.Message, error) {
	return intervention.Drop, nil
}

type upperHandler struct {
	intervention.Passthrough
}

func (upperHandler) OnSend(_ context.Context, msg core.Message, _ *core.AgentID, _ core.AgentID) (core.Message, error) {
	if p, ok := msg.(ping); ok {
		return ping{Text: strings.ToUpper(p.Text)}, nil
	}

	return msg, nil
}

func TestInterventionDropsSend(t *testing.T) {
	rt := runtime.New(runtime.WithInterventionHandlers(droppingHandler{}))

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	_, err = rt.Send(context.Background(), ping{Text: "hello"}, core.NewAgentID("echo", "default"))
	require.ErrorIs(t, err, core.ErrMessageDropped)

	stopWhenIdle(t, handle)
}

func TestInterventionTransformsSend(t *testing.T) {
	rt := runtime.New(runtime.WithInterventionHandlers(upperHandler{}))

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	result, err := rt.Send(context.Background(), ping{Text: "hello"}, core.NewAgentID("echo", "default"))
	require.NoError(t, err)
	require.Equal(t, pong{Text: "HELLO"}, result)

	stopWhenIdle(t, handle)
}

type faultingSendHandler struct {
	intervention.Passthrough
	err error
}

func (h faultingSendHandler) OnSend(_ context.Context, _ core.Message, _ *core.AgentID, _ core.AgentID) (core.Message, error) {
	return nil, h.err
}

func TestInterventionFaultFailsSend(t *testing.T) {
	errHook := errors.New("vetoed")

	rt := runtime.New(runtime.WithInterventionHandlers(faultingSendHandler{err: errHook}))

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	_, err = rt.Send(context.Background(), ping{Text: "hello"}, core.NewAgentID("echo", "default"))
	require.ErrorIs(t, err, errHook)

	stopWhenIdle(t, handle)
}

type responseDroppingHandler struct {
	intervention.Passthrough
}

func (responseDroppingHandler) OnResponse(_ context.Context, _ core.Message, _ core.AgentID, _ *core.AgentID) (core.Message, error) {
	return intervention.Drop, nil
}

func TestInterventionDropsResponse(t *testing.T) {
	rt := runtime.New(runtime.WithInterventionHandlers(responseDroppingHandler{}))

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	// The request reaches the handler; its reply is vetoed on the way back.
	_, err = rt.Send(context.Background(), ping{Text: "hello"}, core.NewAgentID("echo", "default"))
	require.ErrorIs(t, err, core.ErrMessageDropped)

	stopWhenIdle(t, handle)
}

func TestRegisterDuplicateType(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	_, err = rt.Register("echo", newEchoAgent)
	require.ErrorIs(t, err, core.ErrDuplicateAgentType)
}

func TestStartTwice(t *testing.T) {
	rt := runtime.New()

	handle, err := rt.Start()
	require.NoError(t, err)

	_, err = rt.Start()
	require.ErrorIs(t, err, core.ErrRuntimeStarted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, handle.Stop(ctx))

	// A fresh run can begin once the previous loop has exited.
	handle, err = rt.Start()
	require.NoError(t, err)

	stopWhenIdle(t, handle)
}

func TestAgentMetadata(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	meta, err := rt.AgentMetadata(core.NewAgentID("echo", "worker"))
	require.NoError(t, err)
	assert.Equal(t, "echo", meta.Type)
	assert.Equal(t, "worker", meta.Key)

	_, err = rt.AgentMetadata(core.NewAgentID("missing", "default"))
	require.ErrorIs(t, err, core.ErrRecipientNotFound)
}

func TestSaveLoadState(t *testing.T) {
	rt := runtime.New()

	counter := &counterAgent{}

	_, err := rt.Register("counter", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		counter.id = id
		return counter, nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("news", "counter")))

	handle, err := rt.Start()
	require.NoError(t, err)

	require.NoError(t, rt.Publish(context.Background(), ping{}, core.NewTopicID("news", "default")))

	stopWhenIdle(t, handle)

	state, err := rt.SaveState()
	require.NoError(t, err)
	require.Contains(t, state, "counter/default")
	assert.Equal(t, 1, state["counter/default"]["count"])

	restored := runtime.New()

	fresh := &counterAgent{}

	_, err = restored.Register("counter", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		fresh.id = id
		return fresh, nil
	})
	require.NoError(t, err)

	require.NoError(t, restored.LoadState(state))
	assert.Equal(t, 1, fresh.Count())
}

type seq struct {
	N int
}

func (seq) MessageType() string { return "runtime_test.seq" }

type orderAgent struct {
	testAgent

	mu    sync.Mutex
	order []int
}

func (a *orderAgent) OnMessage(_ context.Context, msg core.Message, _ *core.MessageContext) (core.Message, error) {
	a.mu.Lock()
	a.order = append(a.order, msg.(seq).N)
	a.mu.Unlock()

	return nil, nil
}

func (a *orderAgent) Order() []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]int(nil), a.order...)
}

func TestPublishHandlerStartOrder(t *testing.T) {
	rt := runtime.New()

	recorder := &orderAgent{}

	_, err := rt.Register("recorder", func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		recorder.id = id
		return recorder, nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.AddSubscription(subscription.NewTypeSubscription("ticks", "recorder")))

	handle, err := rt.Start()
	require.NoError(t, err)

	const n = 25

	want := make([]int, n)

	for i := 0; i < n; i++ {
		want[i] = i

		require.NoError(t, rt.Publish(context.Background(), seq{N: i}, core.NewTopicID("ticks", "default")))
	}

	stopWhenIdle(t, handle)

	// Handlers begin in enqueue order even though each delivery runs on its
	// own goroutine.
	assert.Equal(t, want, recorder.Order())
}

type recordingSink struct {
	mu     sync.Mutex
	events []runtime.MessageEvent
}

func (s *recordingSink) OnMessageEvent(ev runtime.MessageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
}

func (s *recordingSink) stages(kind runtime.MessageKind) []runtime.DeliveryStage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stages []runtime.DeliveryStage

	for _, ev := range s.events {
		if ev.Kind == kind {
			stages = append(stages, ev.Stage)
		}
	}

	return stages
}

func TestEventSinkObservesLifecycle(t *testing.T) {
	sink := &recordingSink{}

	rt := runtime.New(runtime.WithEventSink(sink))

	_, err := rt.Register("echo", newEchoAgent)
	require.NoError(t, err)

	handle, err := rt.Start()
	require.NoError(t, err)

	_, err = rt.Send(context.Background(), ping{Text: "hi"}, core.NewAgentID("echo", "default"))
	require.NoError(t, err)

	stopWhenIdle(t, handle)

	assert.Equal(t, []runtime.DeliveryStage{runtime.StageEnqueue, runtime.StageDeliver}, sink.stages(runtime.KindSend))
	assert.Equal(t, []runtime.DeliveryStage{runtime.StageDeliver}, sink.stages(runtime.KindResponse))
}
