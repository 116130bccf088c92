package websocket

import (
	"context"
	"testing"
)

type fakePresence struct {
	online  []uint
	offline []uint
}

func (p *fakePresence) SetUserOnline(_ context.Context, userID uint) error {
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) SetUserOffline(_ context.Context, userID uint) error {
	p.offline = append(p.offline, userID)
	return nil
}

func newTestGateway() (*Gateway, *fakePresence) {
	registry := NewRegistry()
	store := newFakeStore()
	members := &fakeMemberships{members: map[uint][]uint{}}
	pipeline := NewPipeline(store, members, NewDispatcher(registry, nil))
	presence := &fakePresence{}
	return NewGateway(registry, pipeline, nil, presence), presence
}

func TestGatewayDisconnectCleansUp(t *testing.T) {
	g, presence := newTestGateway()
	c := newTestClient(1)
	g.register(c)

	if len(presence.online) != 1 || presence.online[0] != 1 {
		t.Fatalf("expected user 1 marked online, got %v", presence.online)
	}
	if !g.registry.Online(1) {
		t.Fatal("expected user 1 registered")
	}

	g.disconnect(c)

	if g.registry.Online(1) {
		t.Fatal("expected user 1 removed from the registry")
	}
	if !c.isClosed() {
		t.Fatal("expected the client to be closed")
	}
	if len(presence.offline) != 1 || presence.offline[0] != 1 {
		t.Fatalf("expected user 1 marked offline, got %v", presence.offline)
	}
}

func TestGatewayOnlineOnlyOnFirstConnection(t *testing.T) {
	g, presence := newTestGateway()
	laptop := newTestClient(1)
	phone := newTestClient(1)

	g.register(laptop)
	g.register(phone)

	if len(presence.online) != 1 {
		t.Fatalf("expected exactly one online transition, got %d", len(presence.online))
	}

	g.disconnect(phone)
	g.register(newTestClient(1))
	if len(presence.online) != 1 {
		t.Fatal("a further connection while online must not re-mark the user")
	}
}

func TestGatewayOfflineOnlyAfterLastConnection(t *testing.T) {
	g, presence := newTestGateway()
	laptop := newTestClient(1)
	phone := newTestClient(1)
	g.register(laptop)
	g.register(phone)

	g.disconnect(laptop)
	if len(presence.offline) != 0 {
		t.Fatal("user must stay online while another connection remains")
	}

	g.disconnect(phone)
	if len(presence.offline) != 1 {
		t.Fatalf("expected exactly one offline transition, got %d", len(presence.offline))
	}
}

func TestGatewayDisconnectIsIdempotent(t *testing.T) {
	g, presence := newTestGateway()
	c := newTestClient(1)
	g.register(c)

	g.disconnect(c)
	g.disconnect(c)

	if len(presence.offline) != 1 {
		t.Fatalf("expected exactly one offline transition, got %d", len(presence.offline))
	}
}

func TestGatewayShutdownClosesAllClients(t *testing.T) {
	g, _ := newTestGateway()
	clients := []*Client{newTestClient(1), newTestClient(2), newTestClient(2)}
	for _, c := range clients {
		g.register(c)
	}

	g.Shutdown()

	for _, c := range clients {
		if !c.isClosed() {
			t.Fatalf("expected client %s to be closed", c.ID())
		}
	}
	if len(g.registry.ActiveClients()) != 0 {
		t.Fatal("expected an empty registry after shutdown")
	}
}
