package store

import (
	"database/sql"
	"time"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p          domain.Profile
		persona    string
		length     string
		emoji      string
		subscribed int
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &persona, &length, &emoji,
		&subscribed, &p.TZ, &p.LastSummary, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Persona = domain.Persona(persona)
	p.ReplyLength = domain.ReplyLength(length)
	p.EmojiUsage = domain.EmojiUsage(emoji)
	p.Subscribed = subscribed != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

// nullText binds *string patch fields: nil means "keep current value"
// (SQL NULL feeds the COALESCE in the merge UPDATE).
func nullText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullBool binds *bool patch fields as 0/1, nil meaning "keep current value".
func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	v := int64(0)
	if *b {
		v = 1
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
