// Package mqttc implements the client-side core of MQTT 3.1 and 3.1.1: a
// wire codec (internal/packets) and a single-threaded session state
// machine that drives the QoS 0/1/2 delivery handshakes, the keep-alive
// PING cycle, and in-flight retransmission over one long-lived
// connection.
//
// # Scope
//
// This package owns the protocol, not the socket. A Client is handed a
// Conn - anything with Read, Write, Close and SetReadDeadline, typically
// a *net.TCPConn - and drives it from a single goroutine inside Run. There
// are no other goroutines, no locks, and no channels in the session path:
// Publish, Subscribe, Unsubscribe and the callbacks registered in
// Callbacks all execute on the same goroutine that called Run.
//
// # Quick start
//
// Because everything runs on Run's goroutine, operations that should fire
// once the connection is live belong inside OnConnack - not after Run is
// called, which blocks until the link drops.
//
//	var c *mqttc.Client
//	cb := mqttc.Callbacks{
//	    OnConnack: func(flags, returnCode uint8) {
//	        c.Subscribe([]string{"sensors/+/temperature"}, []mqttc.QoS{mqttc.AtLeastOnce})
//	    },
//	    OnPublish: func(topic string, qos mqttc.QoS, retain bool, payload []byte) {
//	        fmt.Printf("%s: %s\n", topic, payload)
//	    },
//	}
//	c = mqttc.New(cb, mqttc.WithKeepAlive(30*time.Second))
//	if err := c.Connect("localhost:1883"); err != nil {
//	    log.Fatal(err)
//	}
//	err := c.Run() // blocks until the link dies or Disconnect is called
//
// # Non-goals
//
// TLS, MQTT 5, persisting session state across process restarts,
// reconnect policy beyond one retry, websocket transport, and shared
// subscriptions are all out of scope; Run returns once the link is
// confirmed dead after that one retry.
package mqttc
