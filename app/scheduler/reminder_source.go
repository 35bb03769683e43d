package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// FileReminderSource reads due fee reminders from a JSON export dropped by the
// school finance system. The file maps tenant id to a list of reminders:
//
//	{"42": [{"guardian_name":"Mrs. Otieno","guardian_phone":"+254700000001","student_name":"Amina","amount_due_cents":150000,"due_date":"2026-09-15"}]}
//
// The file is re-read on every scheduler tick so a fresh nightly export is
// picked up without a restart.
type FileReminderSource struct {
	path string

	mu     sync.Mutex
	loaded map[uint][]FeeReminder
}

type fileReminderEntry struct {
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
	StudentName   string `json:"student_name"`
	AmountDue     uint64 `json:"amount_due_cents"`
	DueDate       string `json:"due_date"`
}

func NewFileReminderSource(path string) *FileReminderSource {
	return &FileReminderSource{path: path}
}

// DueReminders returns the reminders exported for a tenant. A missing file
// means no reminders are due, not an error.
func (s *FileReminderSource) DueReminders(ctx context.Context, tenantID uint) ([]FeeReminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded == nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s.loaded[tenantID], nil
}

// Reset drops the cached export so the next DueReminders call re-reads the file
func (s *FileReminderSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = nil
}

func (s *FileReminderSource) load() error {
	s.loaded = make(map[uint][]FeeReminder)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read reminder export: %w", err)
	}

	var raw map[string][]fileReminderEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse reminder export: %w", err)
	}

	for key, entries := range raw {
		tenantID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tenant id %q in reminder export", key)
		}
		reminders := make([]FeeReminder, 0, len(entries))
		for _, e := range entries {
			reminders = append(reminders, FeeReminder{
				GuardianName:  e.GuardianName,
				GuardianPhone: e.GuardianPhone,
				StudentName:   e.StudentName,
				AmountDue:     e.AmountDue,
				DueDate:       e.DueDate,
			})
		}
		s.loaded[uint(tenantID)] = reminders
	}
	return nil
}
