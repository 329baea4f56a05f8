package database

import (
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxNotices bounds the notices kept per statement
const maxNotices = 1000

// noticeRouter delivers NOTICE messages raised on a pooled connection to the
// execution currently holding that connection. Notices arriving on a
// connection nobody tracks are dropped.
type noticeRouter struct {
	mu    sync.Mutex
	sinks map[*pgconn.PgConn]*noticeSink
}

func newNoticeRouter() *noticeRouter {
	return &noticeRouter{sinks: make(map[*pgconn.PgConn]*noticeSink)}
}

// handle is installed as the pgconn OnNotice callback
func (r *noticeRouter) handle(conn *pgconn.PgConn, n *pgconn.Notice) {
	r.mu.Lock()
	sink := r.sinks[conn]
	r.mu.Unlock()
	if sink != nil {
		sink.add(fmt.Sprintf("%s: %s", n.Severity, n.Message))
	}
}

func (r *noticeRouter) track(conn *pgconn.PgConn) *noticeSink {
	sink := &noticeSink{}
	r.mu.Lock()
	r.sinks[conn] = sink
	r.mu.Unlock()
	return sink
}

func (r *noticeRouter) untrack(conn *pgconn.PgConn) {
	r.mu.Lock()
	delete(r.sinks, conn)
	r.mu.Unlock()
}

// noticeSink collects the notices of one execution, statement by statement
type noticeSink struct {
	mu      sync.Mutex
	notices []string
	dropped int
}

func (s *noticeSink) add(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) >= maxNotices {
		s.dropped++
		return
	}
	s.notices = append(s.notices, msg)
}

// take returns the notices collected since the previous call
func (s *noticeSink) take() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	if s.dropped > 0 {
		out = append(out, fmt.Sprintf("%d further notices dropped", s.dropped))
	}
	s.notices, s.dropped = nil, 0
	return out
}
