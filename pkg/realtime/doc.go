// Package realtime runs a voice session against the realtime model service.
//
// A Client gets an ephemeral token, opens the microphone, negotiates a
// WebRTC peer connection with an "oai-events" data channel and configures
// the session once the channel opens. Server events are classified into the
// Event set and delivered to Handlers in arrival order on one goroutine.
//
//	c := realtime.NewClient(tokens,
//		realtime.WithInstructions(prompt),
//		realtime.WithHandlers(realtime.Handlers{
//			OnTranscript: func(text string, final bool) { ... },
//			OnLeadCaptured: func(d lead.Data) { ... },
//		}),
//	)
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Disconnect()
//
// Only one session exists per Client. Disconnect releases everything and may
// be called at any time; callbacks from a closed session are dropped.
package realtime
