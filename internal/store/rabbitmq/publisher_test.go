package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type declared struct {
	name    string
	durable bool
	args    amqp.Table
}

type fakeDeclarer struct {
	queues []declared
	failOn string
}

func (f *fakeDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if name == f.failOn {
		return amqp.Queue{}, errors.New("channel closed")
	}
	f.queues = append(f.queues, declared{name: name, durable: durable, args: args})
	return amqp.Queue{Name: name}, nil
}

func TestDeclareTopology(t *testing.T) {
	f := &fakeDeclarer{}
	if err := DeclareTopology(f, "chat_events"); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if len(f.queues) != 2 {
		t.Fatalf("expected main queue and dlq only, got %+v", f.queues)
	}

	dlq, main := f.queues[0], f.queues[1]
	if dlq.name != "chat_events.dlq" || !dlq.durable || dlq.args != nil {
		t.Fatalf("unexpected dlq %+v", dlq)
	}
	if main.name != "chat_events" || !main.durable {
		t.Fatalf("unexpected main queue %+v", main)
	}
	if main.args["x-dead-letter-exchange"] != "" || main.args["x-dead-letter-routing-key"] != "chat_events.dlq" {
		t.Fatalf("main queue must dead-letter to the dlq, got %v", main.args)
	}
}

func TestDeclareTopology_StopsOnError(t *testing.T) {
	f := &fakeDeclarer{failOn: "chat_events.dlq"}
	if err := DeclareTopology(f, "chat_events"); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.queues) != 0 {
		t.Fatalf("main queue must not be declared without its dlq, got %+v", f.queues)
	}
}
