package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastToUserDelivers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &ClientConnection{Hub: hub, Send: make(chan []byte, 1), UserID: 5}
	hub.Register <- client

	require.Eventually(t, func() bool {
		hub.BroadcastToUser(5, []byte("hello"))
		select {
		case msg := <-client.Send:
			return string(msg) == "hello"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastDuringUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					hub.BroadcastToUser(1, []byte("ping"))
					hub.BroadcastToChannel(1, []byte("ping"))
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		client := &ClientConnection{Hub: hub, Send: make(chan []byte, 1), UserID: 1}
		hub.Register <- client
		hub.SubscribeToChannel(1, client)
		hub.Unregister <- client
	}

	close(done)
	wg.Wait()

	assert.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.Clients) == 0 &&
			len(hub.PeerConnections[1]) == 0 &&
			len(hub.ChannelSubscriptions[1]) == 0
	}, time.Second, 5*time.Millisecond)
}
