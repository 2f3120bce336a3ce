/*
Package events provides an in-memory pub/sub broker used to fan out
write-pipeline and cluster-lifecycle notifications to in-process
listeners: anything that wants to react to a document landing or a leader
changing without being wired directly into the batched indexer or the
raft state machine.

Delivery to subscribers is best-effort: a full subscriber buffer skips
that event rather than stalling the broker, since nothing here depends on
guaranteed delivery (that's what the raft log and the KV store are for).
Publish itself waits while the broker's own queue is full.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			log.Printf("%s: %s", ev.Type, ev.Message)
		}
	}()

	broker.Publish(&events.Event{Type: events.EventDocumentIndexed, Message: "books/0"})
*/
package events
