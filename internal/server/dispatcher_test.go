package server

import (
	"testing"

	"github.com/npeters/go-taskroom/internal/stats"
	"github.com/npeters/go-taskroom/internal/testutil"
	"github.com/npeters/go-taskroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDispatcher_DeliverToUser(t *testing.T) {
	t.Run("delivers to every connection of the target", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumEventsDelivered").Times(2)
		defer su.AssertExpectations(t)

		registry := NewRegistry()
		user := types.User{Id: 1, Name: "testuser"}
		c1 := &Client{user: user, send: make(chan *ServerEvent, 1), log: testutil.TestLogger(t)}
		c2 := &Client{user: user, send: make(chan *ServerEvent, 1), log: testutil.TestLogger(t)}
		registry.Register(c1)
		registry.Register(c2)

		d := NewDispatcher(registry, testutil.TestLogger(t), su)
		payload := TaskAssigned{Title: "write report", CreatorName: "manager"}
		d.DeliverToUser(user.Id, EventNewTask, payload)

		for _, c := range []*Client{c1, c2} {
			select {
			case ev := <-c.send:
				assert.Equal(t, EventNewTask, ev.Event, "expected newTask event")
				assert.Equal(t, payload, ev.Data, "expected payload to match")
				assert.False(t, ev.Timestamp.IsZero(), "expected timestamp to be set")
			default:
				t.Error("expected an event on the client's send channel, but none was queued")
			}
		}
	})

	t.Run("offline target is a silent no-op", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		d := NewDispatcher(NewRegistry(), testutil.TestLogger(t), su)
		assert.NotPanics(t, func() {
			d.DeliverToUser(42, EventNewTask, TaskAssigned{Title: "t", CreatorName: "c"})
		}, "expected delivery to an offline user not to panic")
	})

	t.Run("does not deliver to other users", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumEventsDelivered").Once()
		defer su.AssertExpectations(t)

		registry := NewRegistry()
		target := &Client{user: types.User{Id: 1}, send: make(chan *ServerEvent, 1), log: testutil.TestLogger(t)}
		other := &Client{user: types.User{Id: 2}, send: make(chan *ServerEvent, 1), log: testutil.TestLogger(t)}
		registry.Register(target)
		registry.Register(other)

		d := NewDispatcher(registry, testutil.TestLogger(t), su)
		d.DeliverToUser(1, EventNewReport, ReportSubmitted{TaskTitle: "t", StaffName: "s"})

		assert.Len(t, target.send, 1, "expected one event for the target")
		assert.Len(t, other.send, 0, "expected no event for other users")
	})

	t.Run("full send buffer drops without blocking", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		registry := NewRegistry()
		c := &Client{user: types.User{Id: 1}, send: make(chan *ServerEvent, 1), log: testutil.TestLogger(t)}
		c.send <- &ServerEvent{}
		registry.Register(c)

		d := NewDispatcher(registry, testutil.TestLogger(t), su)
		assert.NotPanics(t, func() {
			d.DeliverToUser(1, EventNewTask, TaskAssigned{Title: "t", CreatorName: "c"})
		}, "expected a full buffer to drop the event, not block or panic")
		assert.Len(t, c.send, 1, "expected the queued event count to be unchanged")
	})
}
