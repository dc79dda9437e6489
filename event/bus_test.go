package event

import (
	"testing"

	"github.com/lixenwraith/glyphloom/pattern"
)

func eventFor(id string, typ pattern.EventType) pattern.Event {
	return pattern.Event{Type: typ, Pattern: &pattern.Pattern{ID: id}}
}

func TestPublishOrderAndScope(t *testing.T) {
	b := NewBus()
	var got []string

	b.Subscribe("a", func(ev pattern.Event) { got = append(got, "a1:"+ev.Type.String()) })
	b.Subscribe("a", func(ev pattern.Event) { got = append(got, "a2:"+ev.Type.String()) })
	b.Subscribe("b", func(ev pattern.Event) { got = append(got, "b1:"+ev.Type.String()) })

	b.Publish(eventFor("a", pattern.EventLoad))
	b.Publish(pattern.Event{Type: pattern.EventLoad})

	want := []string{"a1:load", "a2:load"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	s1 := b.Subscribe("p", func(pattern.Event) { calls++ })
	s2 := b.Subscribe("p", func(pattern.Event) { calls += 10 })
	if !s1.Valid() || (Subscription{}).Valid() {
		t.Fatal("subscription validity wrong")
	}

	b.Unsubscribe(s1)
	b.Unsubscribe(s1)
	b.Unsubscribe(Subscription{PatternID: "missing"})
	b.Publish(eventFor("p", pattern.EventAnimate))
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}

	b.Unsubscribe(s2)
	if b.Count("p") != 0 {
		t.Errorf("Count() = %d after removing all", b.Count("p"))
	}
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	calls := 0
	var self Subscription
	self = b.Subscribe("p", func(pattern.Event) {
		calls++
		b.Unsubscribe(self)
	})
	b.Subscribe("p", func(pattern.Event) { calls++ })

	b.Publish(eventFor("p", pattern.EventAnimate))
	b.Publish(eventFor("p", pattern.EventAnimate))
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestClearAndReset(t *testing.T) {
	b := NewBus()
	b.Subscribe("a", func(pattern.Event) {})
	b.Subscribe("b", func(pattern.Event) {})

	b.Clear("a")
	if b.Count("a") != 0 || b.Count("b") != 1 {
		t.Errorf("after Clear: a=%d b=%d", b.Count("a"), b.Count("b"))
	}
	b.Reset()
	if b.Count("b") != 0 {
		t.Error("Reset left handlers")
	}
}
