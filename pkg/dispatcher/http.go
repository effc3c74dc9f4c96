package dispatcher

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srand/multinode/pkg/log"
)

// Path of the HTTP endpoint that is upgraded to a protocol connection.
const ClientPath = "/multinode-client"

type StatisticsProvider interface {
	Statistics() *Statistics
}

// Accepts protocol connections. NewConnection blocks for
// the lifetime of the connection.
type ConnectionHandler interface {
	NewConnection(conn io.ReadWriteCloser)
}

// A hijacked connection. Reads drain data buffered by the HTTP server first.
type hijackedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (c *hijackedConn) Read(data []byte) (int, error) {
	return c.reader.Read(data)
}

func NewHttpHandler(stats StatisticsProvider, handler ConnectionHandler, r *echo.Echo) {
	r.GET("/data", func(c echo.Context) error {
		return c.JSON(http.StatusOK, stats.Statistics())
	})

	r.GET("/metrics", func(c echo.Context) error {
		stats := stats.Statistics()

		slots := 0
		active := 0
		for _, worker := range stats.Workers {
			slots += worker.Slots
			active += worker.Active
		}

		metrics := fmt.Sprintln("# TYPE multinode_dispatcher_workers gauge")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_workers The total number of workers currently registered.")
		metrics += fmt.Sprintf("multinode_dispatcher_workers %d\n", len(stats.Workers))

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_slots gauge")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_slots The total number of worker slots.")
		metrics += fmt.Sprintf("multinode_dispatcher_slots %d\n", slots)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_slots_active gauge")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_slots_active The number of worker slots currently executing a task.")
		metrics += fmt.Sprintf("multinode_dispatcher_slots_active %d\n", active)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_waiting gauge")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_waiting The number of tasks waiting for a worker.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_waiting %d\n", stats.WaitingTasks)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_running gauge")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_running The number of tasks currently executing.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_running %d\n", stats.RunningTasks)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_submitted_total counter")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_submitted_total The total number of submitted tasks.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_submitted_total %d\n", stats.SubmittedTasks)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_completed_total counter")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_completed_total The total number of tasks resolved with a result.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_completed_total %d\n", stats.CompletedTasks)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_failed_total counter")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_failed_total The total number of tasks rejected with an error.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_failed_total %d\n", stats.FailedTasks)

		metrics += fmt.Sprintln("# TYPE multinode_dispatcher_tasks_rescheduled_total counter")
		metrics += fmt.Sprintln("# HELP multinode_dispatcher_tasks_rescheduled_total The total number of tasks rescheduled after a lost worker.")
		metrics += fmt.Sprintf("multinode_dispatcher_tasks_rescheduled_total %d\n", stats.RescheduledTasks)

		return c.String(http.StatusOK, metrics)
	})

	if handler == nil {
		return
	}

	r.GET(ClientPath, func(c echo.Context) error {
		conn, rw, err := c.Response().Hijack()
		if err != nil {
			return c.String(http.StatusInternalServerError, err.Error())
		}

		log.Debug("Protocol connection from", conn.RemoteAddr())
		handler.NewConnection(&hijackedConn{Conn: conn, reader: rw.Reader})
		return nil
	})
}
