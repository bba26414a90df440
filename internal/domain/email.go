package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type EmailStatus string

const (
	EmailStatusSuccess    EmailStatus = "success"
	EmailStatusSimulation EmailStatus = "success (simulation)"
	EmailStatusFailed     EmailStatus = "failed"
)

// EmailHistoryLimit is the number of most recent send attempts kept.
const EmailHistoryLimit = 100

var ErrHistoryIndexOutOfRange = errors.New("history index out of range")

type EmailHistoryEntry struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	To             string      `db:"recipient" json:"to"`
	Subject        string      `db:"subject" json:"subject"`
	AttachmentName string      `db:"attachment_name" json:"attachmentName,omitempty"`
	SentAt         time.Time   `db:"sent_at" json:"sentAt"`
	MessageID      string      `db:"message_id" json:"messageId,omitempty"`
	Status         EmailStatus `db:"status" json:"status"`
	Error          *string     `db:"error" json:"error,omitempty"`
}

type EmailTemplate struct {
	Name       string    `db:"name" json:"name"`
	Subject    string    `db:"subject" json:"subject"`
	Body       string    `db:"body" json:"body"`
	Recipients []string  `db:"-" json:"recipients"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// SortHistoryDesc orders entries newest first. Entries sent at the same
// instant keep their relative order.
func SortHistoryDesc(entries []EmailHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SentAt.After(entries[j].SentAt)
	})
}

// ResolveHistoryIndices maps indices into the newest-first view onto the
// entries they reference. Every index must be in range; duplicates collapse.
func ResolveHistoryIndices(desc []EmailHistoryEntry, indices []int) ([]EmailHistoryEntry, error) {
	seen := make(map[int]struct{}, len(indices))
	out := make([]EmailHistoryEntry, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(desc) {
			return nil, fmt.Errorf("%w: %d", ErrHistoryIndexOutOfRange, idx)
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, desc[idx])
	}
	return out, nil
}

// OutgoingEmail is a purchase order message with its document attached.
type OutgoingEmail struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}
