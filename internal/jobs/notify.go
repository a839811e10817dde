package jobs

import "sync"

// Update is a status transition delivered to subscribers.
type Update struct {
	JobID  string `json:"job_id"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Notifier fans job transitions out to per-job subscribers. Slow
// subscribers miss intermediate updates rather than blocking workers.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[chan Update]struct{}
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan Update]struct{})}
}

// Subscribe registers for updates on jobID. The returned cancel func must
// be called to release the subscription; it closes the channel.
func (n *Notifier) Subscribe(jobID string) (<-chan Update, func()) {
	ch := make(chan Update, 4)
	n.mu.Lock()
	if n.subs[jobID] == nil {
		n.subs[jobID] = make(map[chan Update]struct{})
	}
	n.subs[jobID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[jobID], ch)
			if len(n.subs[jobID]) == 0 {
				delete(n.subs, jobID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers u to every subscriber of u.JobID.
func (n *Notifier) Publish(u Update) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[u.JobID] {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for jobID.
func (n *Notifier) Subscribers(jobID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[jobID])
}
