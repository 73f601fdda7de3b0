package redis

import (
	"context"
	"testing"
	"time"
)

func TestChangeFeedPubSub(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewChangeFeed(client, nil)
	ctx := context.Background()

	ch, cancel, err := feed.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := feed.Publish(ctx, "u1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change signal")
	}

	cancel()
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel closed after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
