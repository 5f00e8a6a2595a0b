package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tiep1406/appointment--system/libs/db"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

// Postgres serves resources from the resources and resource_working_hours
// tables. Working hours are stored per weekday as minutes of day.
type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Resource(ctx context.Context, id string) (Resource, error) {
	var res Resource
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(notes, '')
		FROM resources
		WHERE id = $1 AND is_active
	`, id).Scan(&res.ID, &res.Name, &res.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	if err != nil {
		return Resource{}, err
	}

	if err := p.loadHours(ctx, &res); err != nil {
		return Resource{}, err
	}
	return res, nil
}

func (p *Postgres) loadHours(ctx context.Context, res *Resource) error {
	rows, err := p.pool.Query(ctx, `
		SELECT weekday, is_working, start_minute, end_minute
		FROM resource_working_hours
		WHERE resource_id = $1
		ORDER BY weekday ASC
	`, res.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	seeded := false
	for rows.Next() {
		var weekday, startMin, endMin int
		var working bool
		if err := rows.Scan(&weekday, &working, &startMin, &endMin); err != nil {
			return err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		seeded = true
		if !working {
			res.Hours[weekday] = DayWindow{}
			continue
		}
		window, err := interval.New(startMin, endMin)
		if err != nil {
			return fmt.Errorf("resource %s weekday %d: %w", res.ID, weekday, err)
		}
		res.Hours[weekday] = DayWindow{Working: true, Window: window}
	}
	if rows.Err() != nil {
		return rows.Err()
	}

	// Default Mon-Fri 09:00-17:00 when the schedule was never seeded.
	if !seeded {
		for wd := 1; wd <= 5; wd++ {
			res.Hours[wd] = DayWindow{Working: true, Window: interval.Interval{Start: 540, End: 1020}}
		}
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Resource, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(notes, '')
		FROM resources
		WHERE is_active
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Notes); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range out {
		if err := p.loadHours(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Upsert applies a resource definition received from the external
// directory feed, replacing the stored weekly schedule.
func (p *Postgres) Upsert(ctx context.Context, res Resource) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO resources (id, name, notes, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			notes = EXCLUDED.notes,
			is_active = TRUE,
			updated_at = now()
	`, res.ID, res.Name, res.Notes)
	if err != nil {
		return err
	}

	for wd, day := range res.Hours {
		if _, err := tx.Exec(ctx, `
			INSERT INTO resource_working_hours (resource_id, weekday, is_working, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (resource_id, weekday) DO UPDATE
			SET is_working = EXCLUDED.is_working,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute
		`, res.ID, wd, day.Working, day.Window.Start, day.Window.End); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
