package ws

import (
	"context"
	"net"
	"testing"
	"time"

	fasthttpws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
)

func TestSendDropsWhenQueueIsFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < broadcastBuffer; i++ {
		if !h.Send([]byte("x")) {
			t.Fatalf("send %d dropped before the queue was full", i)
		}
	}
	if h.Send([]byte("overflow")) {
		t.Fatal("expected send to report a drop on a full queue")
	}
}

func TestRunDrainsQueueAndStops(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		h.Send([]byte("msg"))
	}
	deadline := time.After(time.Second)
	for len(h.Broadcast) > 0 {
		select {
		case <-deadline:
			t.Fatal("hub did not drain the broadcast queue")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", h.ClientCount())
	}
}

func startServer(t *testing.T, h *Hub) (*fiber.App, string) {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", UpgradeOnly)
	app.Get("/ws", h.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	return app, "ws://" + ln.Addr().String() + "/ws"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShutdownAfterHubStopsDoesNotHang(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	app, url := startServer(t, h)
	client, _, err := fasthttpws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	waitFor(t, "client to register", func() bool { return h.ClientCount() == 1 })

	cancel()
	<-stopped

	start := time.Now()
	if err := app.ShutdownWithTimeout(3 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("shutdown took %v", took)
	}
}

func TestConnectAfterHubStopsIsClosed(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	app, url := startServer(t, h)
	defer app.Shutdown()

	client, _, err := fasthttpws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
		t.Fatal("connection stayed open after the hub stopped")
	}
}
