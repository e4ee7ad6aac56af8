package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sqlStore implements Store on top of database/sql. It is shared by the
// SQLite and PostgreSQL backends; bind rewrites '?' placeholders into the
// dialect's style.
type sqlStore struct {
	db   *sql.DB
	bind func(string) string
}

// bindQuestion keeps '?' placeholders as-is (SQLite).
func bindQuestion(q string) string { return q }

// bindDollar rewrites '?' placeholders to '$1..$n' (PostgreSQL).
func bindDollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (s *sqlStore) PersonByToken(ctx context.Context, token string) (*Person, error) {
	q := s.bind(`
		SELECT p.id, p.display_name, p.phone, p.contact_type, p.role, t.expires_at
		FROM api_tokens t
		JOIN people p ON p.id = t.person_id
		WHERE t.token = ?`)

	var p Person
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx, q, token).Scan(
		&p.ID, &p.DisplayName, &p.Phone, &p.ContactType, &p.Role, &expires)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("person by token: %w", err)
	}
	if expires.Valid && time.Now().After(expires.Time) {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *sqlStore) PersonByPhoneDigits(ctx context.Context, last10 string) (*Person, error) {
	if last10 == "" {
		return nil, ErrNotFound
	}
	q := s.bind(`
		SELECT id, display_name, phone, contact_type, role
		FROM people
		WHERE phone_digits = ?`)

	var p Person
	err := s.db.QueryRowContext(ctx, q, last10).Scan(
		&p.ID, &p.DisplayName, &p.Phone, &p.ContactType, &p.Role)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("person by phone: %w", err)
	}
	return &p, nil
}

func (s *sqlStore) ActiveAssignments(ctx context.Context, personID string) ([]Assignment, error) {
	q := s.bind(`
		SELECT id, person_id, space_id, status
		FROM assignments
		WHERE person_id = ? AND status IN (?, ?, ?)`)

	rows, err := s.db.QueryContext(ctx, q, personID,
		StatusActive, StatusPendingContract, StatusContractSent)
	if err != nil {
		return nil, fmt.Errorf("active assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.PersonID, &a.SpaceID, &a.Status); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqlStore) Spaces(ctx context.Context) ([]Space, error) {
	q := `
		SELECT id, name, COALESCE(parent_id, ''), is_dwelling, archived
		FROM spaces
		WHERE NOT archived`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("spaces: %w", err)
	}
	defer rows.Close()
	return scanSpaces(rows)
}

func (s *sqlStore) SearchSpaces(ctx context.Context, query string) ([]Space, error) {
	q := s.bind(`
		SELECT id, name, COALESCE(parent_id, ''), is_dwelling, archived
		FROM spaces
		WHERE NOT archived AND lower(name) LIKE '%' || lower(?) || '%'
		ORDER BY name`)

	rows, err := s.db.QueryContext(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("search spaces: %w", err)
	}
	defer rows.Close()
	return scanSpaces(rows)
}

func scanSpaces(rows *sql.Rows) ([]Space, error) {
	var out []Space
	for rows.Next() {
		var sp Space
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.ParentID, &sp.IsDwelling, &sp.Archived); err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *sqlStore) LightingGroups(ctx context.Context) ([]LightingGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(space_id, ''), vendor_id, model
		FROM lighting_groups`)
	if err != nil {
		return nil, fmt.Errorf("lighting groups: %w", err)
	}
	defer rows.Close()

	var out []LightingGroup
	for rows.Next() {
		var g LightingGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.SpaceID, &g.VendorID, &g.Model); err != nil {
			return nil, fmt.Errorf("scanning lighting group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *sqlStore) Thermostats(ctx context.Context) ([]Thermostat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(space_id, ''), vendor_id, COALESCE(min_role, '')
		FROM thermostats`)
	if err != nil {
		return nil, fmt.Errorf("thermostats: %w", err)
	}
	defer rows.Close()

	var out []Thermostat
	for rows.Next() {
		var t Thermostat
		if err := rows.Scan(&t.ID, &t.Name, &t.SpaceID, &t.VendorID, &t.MinRole); err != nil {
			return nil, fmt.Errorf("scanning thermostat: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqlStore) Vehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(space_id, ''), vendor_id
		FROM vehicles`)
	if err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.SpaceID, &v.VendorID); err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqlStore) Cameras(ctx context.Context) ([]Camera, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(space_id, ''), vendor_id
		FROM cameras`)
	if err != nil {
		return nil, fmt.Errorf("cameras: %w", err)
	}
	defer rows.Close()

	var out []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.SpaceID, &c.VendorID); err != nil {
			return nil, fmt.Errorf("scanning camera: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateFeatureRequest(ctx context.Context, fr FeatureRequest) error {
	if fr.CreatedAt.IsZero() {
		fr.CreatedAt = time.Now().UTC()
	}
	q := s.bind(`
		INSERT INTO feature_requests (id, person_id, title, details, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, fr.ID, fr.PersonID, fr.Title, fr.Details, fr.CreatedAt); err != nil {
		return fmt.Errorf("creating feature request: %w", err)
	}
	return nil
}

func (s *sqlStore) RecordAction(ctx context.Context, rec ActionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	q := s.bind(`
		INSERT INTO actions (id, person_id, channel, tool, target, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.PersonID, rec.Channel, rec.Tool, rec.Target, rec.Result, rec.CreatedAt); err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
