package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestEmitKeepsGoingOnFailure(t *testing.T) {
	p := &failingPublisher{}
	Emit(context.Background(), p, New(BillPaid, "u", "b1", nil), New(BillUnpaid, "u", "b1", nil))
	if p.calls != 2 {
		t.Errorf("expected both events to be attempted, got %d", p.calls)
	}
}

func TestEmitNilPublisher(t *testing.T) {
	Emit(context.Background(), nil, New(BillPaid, "u", "b1", nil))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	Emit(context.Background(), r,
		New(TransferCompleted, "u", "t1", map[string]string{"amount": "250.00"}),
		New(TransferCancelled, "u", "t1", nil),
	)

	types := r.Types()
	if len(types) != 2 || types[0] != TransferCompleted || types[1] != TransferCancelled {
		t.Fatalf("unexpected types %v", types)
	}
}

func TestEventJSON(t *testing.T) {
	body, err := New(GoalContribution, "u", "g1", map[string]string{"amount": "200.00"}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != GoalContribution || decoded["resource_id"] != "g1" {
		t.Errorf("unexpected payload %s", body)
	}
}
