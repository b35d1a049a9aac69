package store

var SessionLogsKey = Key[[]SessionLog]{
	Name:    "sessionLogs",
	Default: func() []SessionLog { return []SessionLog{} },
}

func (s *Store) ListSessions() []SessionLog {
	return Get(s, SessionLogsKey)
}

// AppendSession adds a log entry. Entries are never edited or removed
// except by Reset.
func (s *Store) AppendSession(log SessionLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	Set(s, SessionLogsKey, append(Get(s, SessionLogsKey), log))
}
