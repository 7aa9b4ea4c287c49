// Package notify delivers outbid/won/sold alerts to external collaborators
// (SMS, email, push are transports behind the Sender interface). Dispatch is
// fire-and-forget: a failed or dropped notification never rolls back a bid
// or a settlement, and enqueueing never blocks the caller.
package notify

import (
	"auction-engine/utils"
)

// Dispatcher is the outbound notification surface the engine depends on.
type Dispatcher interface {
	NotifyOutbid(buyerID, auctionID string)
	NotifyWon(buyerID, auctionID string)
	NotifySold(submitterID, auctionID string, amount int64)
}

// Sender delivers a single event over one concrete channel.
type Sender interface {
	Send(event Event) error
	Name() string
}

// Event is one queued notification.
type Event struct {
	Kind        string `json:"kind"` // "outbid" | "won" | "sold"
	RecipientID string `json:"recipient_id"`
	AuctionID   string `json:"auction_id"`
	Amount      int64  `json:"amount,omitempty"`
}

// AsyncDispatcher queues events on a buffered channel drained by a single
// worker goroutine. A full queue drops the event with a warning rather than
// blocking bid or settlement paths.
type AsyncDispatcher struct {
	sender Sender
	queue  chan Event
	done   chan struct{}
}

// NewAsyncDispatcher starts the worker. bufferSize bounds the in-flight queue.
func NewAsyncDispatcher(sender Sender, bufferSize int) *AsyncDispatcher {
	d := &AsyncDispatcher{
		sender: sender,
		queue:  make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		if err := d.sender.Send(ev); err != nil {
			utils.Warn("notification delivery failed", map[string]any{
				"sender":    d.sender.Name(),
				"kind":      ev.Kind,
				"recipient": ev.RecipientID,
				"error":     err.Error(),
			})
		}
	}
}

func (d *AsyncDispatcher) enqueue(ev Event) {
	select {
	case d.queue <- ev:
	default:
		utils.Warn("notification queue full, dropping event", map[string]any{
			"kind":      ev.Kind,
			"recipient": ev.RecipientID,
			"auction":   ev.AuctionID,
		})
	}
}

// NotifyOutbid alerts a buyer whose standing bid was superseded.
func (d *AsyncDispatcher) NotifyOutbid(buyerID, auctionID string) {
	d.enqueue(Event{Kind: "outbid", RecipientID: buyerID, AuctionID: auctionID})
}

// NotifyWon alerts the settled winner.
func (d *AsyncDispatcher) NotifyWon(buyerID, auctionID string) {
	d.enqueue(Event{Kind: "won", RecipientID: buyerID, AuctionID: auctionID})
}

// NotifySold alerts the content submitter of the sale amount.
func (d *AsyncDispatcher) NotifySold(submitterID, auctionID string, amount int64) {
	d.enqueue(Event{Kind: "sold", RecipientID: submitterID, AuctionID: auctionID, Amount: amount})
}

// Close stops accepting events and waits for the queue to drain.
func (d *AsyncDispatcher) Close() {
	close(d.queue)
	<-d.done
}

// LogSender is the default transport: it writes the event to the structured
// log. Real delivery channels live outside this repository.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(ev Event) error {
	utils.Info("notification", map[string]any{
		"kind":      ev.Kind,
		"recipient": ev.RecipientID,
		"auction":   ev.AuctionID,
		"amount":    ev.Amount,
	})
	return nil
}
