// Package msgs provides the client protocol of the proxy and all
// message schemas.
package msgs

// Every packet is a Typed envelope carrying a protobuf encoded message.
// Commands carry a sequence number which is echoed by the reply, events
// are fire-and-forget.
//
// Producer: proxy and clients
// Consumer: proxy and clients
