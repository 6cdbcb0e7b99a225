package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// Store persists conversation data in a single SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMessages appends msgs to the customer's history in order.
func (s *Store) AppendMessages(ctx context.Context, customerID string, msgs []message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, msg := range msgs {
		meta := []byte("{}")
		if msg.Metadata != nil && !msg.Metadata.IsEmpty() {
			meta, err = json.Marshal(msg.Metadata)
			if err != nil {
				return fmt.Errorf("sqlite: marshal metadata: %w", err)
			}
		}

		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (customer_id, seq, role, content, metadata, created_at)
			VALUES (?, COALESCE((SELECT MAX(seq) FROM messages WHERE customer_id = ?), 0) + 1,
			        ?, ?, ?, ?)`,
			customerID, customerID,
			string(msg.Role), msg.Content, string(meta), ts.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("sqlite: append message: %w", err)
		}
	}

	return tx.Commit()
}

// RecentMessages returns up to n messages in chronological order.
func (s *Store) RecentMessages(ctx context.Context, customerID string, n int) ([]message.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, metadata, created_at
		FROM messages
		WHERE customer_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		customerID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []message.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent messages rows: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(msgs)
	return msgs, nil
}

// LogIntent appends one record to the customer's intent log.
func (s *Store) LogIntent(ctx context.Context, customerID string, rec store.IntentRecord) error {
	params := []byte("{}")
	if len(rec.Parameters) > 0 {
		var err error
		params, err = json.Marshal(rec.Parameters)
		if err != nil {
			return fmt.Errorf("sqlite: marshal parameters: %w", err)
		}
	}

	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intents (customer_id, seq, type, confidence, parameters, created_at)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM intents WHERE customer_id = ?), 0) + 1,
		        ?, ?, ?, ?)`,
		customerID, customerID,
		string(rec.Type), rec.Confidence, string(params), at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: log intent: %w", err)
	}
	return nil
}

// LastIntent returns the most recent intent record for the customer.
func (s *Store) LastIntent(ctx context.Context, customerID string) (store.IntentRecord, bool, error) {
	var (
		rec        store.IntentRecord
		typ        string
		paramsJSON string
		createdAt  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT type, confidence, parameters, created_at
		FROM intents
		WHERE customer_id = ?
		ORDER BY seq DESC
		LIMIT 1`,
		customerID,
	).Scan(&typ, &rec.Confidence, &paramsJSON, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.IntentRecord{}, false, nil
		}
		return store.IntentRecord{}, false, fmt.Errorf("sqlite: last intent: %w", err)
	}

	rec.Type = intent.Type(typ)
	if paramsJSON != "" && paramsJSON != "{}" {
		if err := json.Unmarshal([]byte(paramsJSON), &rec.Parameters); err != nil {
			return store.IntentRecord{}, false, fmt.Errorf("sqlite: unmarshal parameters: %w", err)
		}
	}
	rec.At = parseTime(createdAt)
	return rec, true, nil
}

// State loads the customer's session state.
func (s *Store) State(ctx context.Context, customerID string) (session.State, bool, error) {
	var (
		st        session.State
		phase     string
		orderJSON string
		dataJSON  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT phase, active_order, data
		FROM states
		WHERE customer_id = ?`,
		customerID,
	).Scan(&phase, &orderJSON, &dataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.State{}, false, nil
		}
		return session.State{}, false, fmt.Errorf("sqlite: load state: %w", err)
	}

	st.Phase = session.Phase(phase)
	if orderJSON != "" {
		var ref session.OrderRef
		if err := json.Unmarshal([]byte(orderJSON), &ref); err != nil {
			return session.State{}, false, fmt.Errorf("sqlite: unmarshal active order: %w", err)
		}
		st.ActiveOrder = &ref
	}
	st.Data = map[string]any{}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &st.Data); err != nil {
			return session.State{}, false, fmt.Errorf("sqlite: unmarshal state data: %w", err)
		}
	}
	return st, true, nil
}

// SaveState persists the customer's session state, replacing any
// previous one.
func (s *Store) SaveState(ctx context.Context, customerID string, st session.State) error {
	orderJSON := ""
	if st.ActiveOrder != nil {
		b, err := json.Marshal(st.ActiveOrder)
		if err != nil {
			return fmt.Errorf("sqlite: marshal active order: %w", err)
		}
		orderJSON = string(b)
	}

	dataJSON := []byte("{}")
	if len(st.Data) > 0 {
		var err error
		dataJSON, err = json.Marshal(st.Data)
		if err != nil {
			return fmt.Errorf("sqlite: marshal state data: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO states (customer_id, phase, active_order, data, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		customerID, string(st.Phase), orderJSON, string(dataJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save state: %w", err)
	}
	return nil
}

// MarkDelivery records a webhook delivery id. It returns true the first
// time an id is seen.
func (s *Store) MarkDelivery(ctx context.Context, deliveryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO deliveries (delivery_id, received_at)
		VALUES (?, ?)`,
		deliveryID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: mark delivery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: mark delivery rows: %w", err)
	}
	return n > 0, nil
}

// PruneDeliveries removes delivery records older than olderThan.
func (s *Store) PruneDeliveries(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM deliveries WHERE received_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune deliveries rows: %w", err)
	}
	return int(n), nil
}

// IdleCustomers returns customers whose session may be abandoned: a
// non-terminal phase past its first activation, untouched for olderThan.
func (s *Store) IdleCustomers(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id FROM states
		WHERE updated_at < ? AND phase IN (?, ?, ?)
		ORDER BY customer_id`,
		cutoff,
		string(session.PhaseActive),
		string(session.PhaseOrderInProgress),
		string(session.PhasePaymentPending),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: idle customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan idle customer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear removes all data for a customer.
func (s *Store) Clear(ctx context.Context, customerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"messages", "intents", "states"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE customer_id = ?", customerID); err != nil {
			return fmt.Errorf("sqlite: clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (message.Message, error) {
	var (
		msg       message.Message
		role      string
		metaJSON  string
		createdAt string
	)

	if err := sc.Scan(&role, &msg.Content, &metaJSON, &createdAt); err != nil {
		return msg, fmt.Errorf("sqlite: scan message: %w", err)
	}

	msg.Role = message.Role(role)
	msg.Timestamp = parseTime(createdAt)

	if metaJSON != "" && metaJSON != "{}" {
		var meta message.Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return msg, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
		}
		msg.Metadata = &meta
	}

	return msg, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
