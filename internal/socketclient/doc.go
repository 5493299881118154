// Package socketclient is the websocket channel between chatterm and the chat
// relay.
//
// # Architecture
//
//   - Client: owns at most one live websocket connection and its two pumps
//   - Read pump: hands every inbound text frame to a Publisher, in receipt order
//   - Write pump: drains the bounded send queue and keeps the connection alive
//     with pings
//   - Reconnection: exponential backoff with a bounded number of attempts
//
// Send never blocks: a frame is either queued for the write pump or rejected
// immediately. Frames are not kept across a reconnect.
//
// # Basic Usage
//
//	bus := eventbus.New()
//	client, err := socketclient.NewClient(socketclient.DefaultConfig(), bus, nil)
//	if err != nil {
//	    return err
//	}
//	client.SetReconnectedCallback(func() {
//	    // announce ourselves again, the relay forgot the old connection
//	})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	_ = client.Send(`{"messageType":"register","dataArray":null,"data":"alice"}`)
package socketclient
