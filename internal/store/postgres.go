package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zoomsync/crm-bridge/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer: the processed-event ledger,
// the local contact cache, and the settings table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// RecordEventIfNew appends a delivery to the ledger and reports whether this
// call created the entry. created=false means some earlier delivery with the
// same id already claimed it.
//
// Uniqueness is enforced by the primary key on event_id, so exactly one of
// any number of concurrent callers observes created=true.
func (p *PostgresStore) RecordEventIfNew(ctx context.Context, eventID, eventType, email string) (bool, error) {
	if eventID == "" || eventType == "" {
		return false, errors.New("eventID/eventType required")
	}

	// RETURNING 1 only when inserted; duplicates return no rows.
	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO processed_events(event_id, event_type, email)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (event_id) DO NOTHING
		RETURNING 1
	`, eventID, eventType, email).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

const contactColumns = `
	id,
	COALESCE(email, ''),
	COALESCE(crm_contact_id, ''),
	first_name,
	last_name,
	phone,
	location_id,
	created_at,
	updated_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(
		&c.ID, &c.Email, &c.CRMContactID,
		&c.FirstName, &c.LastName, &c.Phone, &c.LocationID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContactByEmail returns the cached contact for a normalized email, or
// (nil, nil) when no row exists.
func (p *PostgresStore) GetContactByEmail(ctx context.Context, email string) (*models.Contact, error) {
	if email == "" {
		return nil, nil
	}
	row := p.pool.QueryRow(ctx, `SELECT`+contactColumns+` FROM contacts WHERE email = $1`, email)
	return scanContact(row)
}

// GetContactByCRMID returns the cached contact bound to a remote contact id,
// or (nil, nil) when no row exists.
func (p *PostgresStore) GetContactByCRMID(ctx context.Context, crmContactID string) (*models.Contact, error) {
	if crmContactID == "" {
		return nil, nil
	}
	row := p.pool.QueryRow(ctx, `SELECT`+contactColumns+` FROM contacts WHERE crm_contact_id = $1`, crmContactID)
	return scanContact(row)
}

// SaveResolvedContact records the outcome of contact resolution: insert a
// linked row for a new email, or repair an existing row in place. Repair
// covers both directions — an unlinked email-keyed row gets the remote id
// attached, and an id-first row (created by configuration intake with only a
// contactId, so its email is NULL) gets the email attached. Either way the
// postcondition is a single linked row for the email, never a second one.
func (p *PostgresStore) SaveResolvedContact(ctx context.Context, c *models.Contact) error {
	if c == nil || c.Email == "" || c.CRMContactID == "" {
		return errors.New("email and crm contact id required")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Link repair: the email row exists, attach the remote id.
	tag, err := tx.Exec(ctx, `
		UPDATE contacts SET
			crm_contact_id = $2,
			first_name     = COALESCE(NULLIF($3, ''), first_name),
			last_name      = COALESCE(NULLIF($4, ''), last_name),
			phone          = COALESCE(NULLIF($5, ''), phone),
			location_id    = COALESCE(NULLIF($6, ''), location_id),
			updated_at     = now()
		WHERE email = $1
	`, c.Email, c.CRMContactID, c.FirstName, c.LastName, c.Phone, c.LocationID)
	if err != nil {
		return err
	}

	// Reverse repair: an id-first row exists without an email, attach it.
	if tag.RowsAffected() == 0 {
		tag, err = tx.Exec(ctx, `
			UPDATE contacts SET
				email          = $1,
				first_name     = COALESCE(NULLIF($3, ''), first_name),
				last_name      = COALESCE(NULLIF($4, ''), last_name),
				phone          = COALESCE(NULLIF($5, ''), phone),
				location_id    = COALESCE(NULLIF($6, ''), location_id),
				updated_at     = now()
			WHERE crm_contact_id = $2 AND email IS NULL
		`, c.Email, c.CRMContactID, c.FirstName, c.LastName, c.Phone, c.LocationID)
		if err != nil {
			return err
		}
	}

	if tag.RowsAffected() == 0 {
		// No row to repair. ON CONFLICT keeps two concurrent resolutions for
		// the same email from inserting twice.
		_, err = tx.Exec(ctx, `
			INSERT INTO contacts(email, crm_contact_id, first_name, last_name, phone, location_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO UPDATE SET
				crm_contact_id = EXCLUDED.crm_contact_id,
				updated_at     = now()
		`, c.Email, c.CRMContactID, c.FirstName, c.LastName, c.Phone, c.LocationID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpsertContactFromContext upserts a contact row from a contact-context
// webhook. The row is keyed by crm_contact_id when present, falling back to
// email. Profile fields only overwrite when the new value is non-empty.
func (p *PostgresStore) UpsertContactFromContext(ctx context.Context, c *models.Contact) error {
	if c == nil || (c.Email == "" && c.CRMContactID == "") {
		return errors.New("email or crm contact id required")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := upsertContactTx(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertContactTx(ctx context.Context, tx pgx.Tx, c *models.Contact) error {
	update := func(whereCol, whereVal string) (bool, error) {
		tag, err := tx.Exec(ctx, `
			UPDATE contacts SET
				email          = COALESCE(NULLIF($2, ''), email),
				crm_contact_id = COALESCE(NULLIF($3, ''), crm_contact_id),
				first_name     = COALESCE(NULLIF($4, ''), first_name),
				last_name      = COALESCE(NULLIF($5, ''), last_name),
				phone          = COALESCE(NULLIF($6, ''), phone),
				location_id    = COALESCE(NULLIF($7, ''), location_id),
				updated_at     = now()
			WHERE `+whereCol+` = $1
		`, whereVal, c.Email, c.CRMContactID, c.FirstName, c.LastName, c.Phone, c.LocationID)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}

	if c.CRMContactID != "" {
		if updated, err := update("crm_contact_id", c.CRMContactID); err != nil || updated {
			return err
		}
	}
	if c.Email != "" {
		if updated, err := update("email", c.Email); err != nil || updated {
			return err
		}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO contacts(email, crm_contact_id, first_name, last_name, phone, location_id)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6)
	`, c.Email, c.CRMContactID, c.FirstName, c.LastName, c.Phone, c.LocationID)
	return err
}

// GetSetting reads a settings value. found=false means the key was never
// written.
func (p *PostgresStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSettingIfChanged writes a settings value, skipping the update when the
// stored value already matches so updated_at stays meaningful.
func (p *PostgresStore) SetSettingIfChanged(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO settings(key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()
		WHERE settings.value IS DISTINCT FROM EXCLUDED.value
	`, key, value)
	return err
}
