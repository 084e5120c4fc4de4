// Package openairealtime is the wire layer for OpenAI's Realtime API.
//
// It knows the event names, the session configuration shape and the two HTTP
// exchanges a WebRTC client needs: creating an ephemeral client secret and
// posting the local SDP offer to the call-setup endpoint.
//
//	client := openairealtime.NewClient(apiKey)
//	secret, err := client.CreateSession(ctx, &openairealtime.SessionRequest{
//	    Model: openairealtime.ModelGPTRealtime,
//	    Voice: openairealtime.VoiceAlloy,
//	})
//	if err != nil {
//	    return err
//	}
//	answer, err := client.ExchangeSDP(ctx, secret.Value, offerSDP)
//
// Events read from the data channel are decoded with ParseServerEvent:
//
//	event, err := openairealtime.ParseServerEvent(msg.Data)
//	if err != nil {
//	    return err
//	}
//	switch event.Type {
//	case openairealtime.EventTypeResponseOutputTextDelta:
//	    fmt.Print(event.Delta)
//	}
//
// For text-only sessions without media, DialWebSocket opens the same control
// protocol over a WebSocket.
package openairealtime
