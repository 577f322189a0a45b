package daemon

import "github.com/the-lightning-land/wifid/wifidb"

const outcomeClientBuffer = 16

// OutcomeClient receives every outcome recorded after it subscribed
type OutcomeClient struct {
	Id       uint32
	Outcomes <-chan *wifidb.Outcome
	cancel   func()
}

// NewOutcomeClient creates a subscription handle that calls cancel once when
// the subscription is cancelled
func NewOutcomeClient(id uint32, outcomes <-chan *wifidb.Outcome, cancel func()) *OutcomeClient {
	return &OutcomeClient{
		Id:       id,
		Outcomes: outcomes,
		cancel:   cancel,
	}
}

// Cancel ends the subscription and closes Outcomes
func (c *OutcomeClient) Cancel() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (d *Daemon) SubscribeOutcomes() *OutcomeClient {
	outcomes := make(chan *wifidb.Outcome, outcomeClientBuffer)

	d.outcomeClientMtx.Lock()
	id := d.nextOutcomeClientId
	d.nextOutcomeClientId++
	d.outcomeClients[id] = outcomes
	d.outcomeClientMtx.Unlock()

	return NewOutcomeClient(id, outcomes, func() {
		d.deleteOutcomeClient(id)
	})
}

func (d *Daemon) deleteOutcomeClient(id uint32) {
	d.outcomeClientMtx.Lock()
	defer d.outcomeClientMtx.Unlock()

	outcomes, ok := d.outcomeClients[id]
	if !ok {
		return
	}

	delete(d.outcomeClients, id)
	close(outcomes)
}

// publishOutcome never blocks; a client that does not keep up misses outcomes
func (d *Daemon) publishOutcome(outcome *wifidb.Outcome) {
	d.outcomeClientMtx.Lock()
	defer d.outcomeClientMtx.Unlock()

	for id, outcomes := range d.outcomeClients {
		select {
		case outcomes <- outcome:
		default:
			d.log.Warnf("Outcome client %d is not keeping up, dropped outcome %d", id, outcome.Id)
		}
	}
}

func (d *Daemon) closeOutcomeClients() {
	d.outcomeClientMtx.Lock()
	defer d.outcomeClientMtx.Unlock()

	for id, outcomes := range d.outcomeClients {
		delete(d.outcomeClients, id)
		close(outcomes)
	}
}
