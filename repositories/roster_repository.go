package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/sideline-hq/sideline/models"
)

var (
	ErrRosterNotFound      = errors.New("roster not found")
	ErrRosterFull          = errors.New("roster is at max capacity")
	ErrRosterEventNotFound = errors.New("roster event not found")
)

// RosterRepository держит player_ids (индекс членства) и players
// (записи-источник) в жёсткой связке: каждая мутация состава — один
// UPDATE обоих столбцов.
type RosterRepository interface {
	Create(ctx context.Context, roster *models.Roster) error
	GetByID(ctx context.Context, id int) (*models.Roster, error)
	Update(ctx context.Context, roster *models.Roster) error
	Delete(ctx context.Context, id int) error
	ListDiscoverable(ctx context.Context) ([]*models.Roster, error)
	ListByPlayer(ctx context.Context, userID int) ([]*models.Roster, error)
	ListByManager(ctx context.Context, userID int) ([]*models.Roster, error)
	ListIDsByPlayer(ctx context.Context, userID int) ([]int, error)

	AddPlayer(ctx context.Context, rosterID int, record models.ParticipantRecord) error
	RemovePlayer(ctx context.Context, rosterID, userID int) error
	UpdatePlayerRecord(ctx context.Context, rosterID int, record models.ParticipantRecord) error

	// ListInconsistentIDs находит ростеры, у которых индекс и записи
	// разъехались; RepairPlayerIDs перестраивает индекс из записей.
	ListInconsistentIDs(ctx context.Context) ([]int, error)
	RepairPlayerIDs(ctx context.Context, rosterID int) error

	CreateEvent(ctx context.Context, event *models.RosterEvent) error
	ListEvents(ctx context.Context, rosterID int) ([]*models.RosterEvent, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

const rosterColumns = `id, name, season, max_capacity, created_by, is_discoverable,
	league_id, target_player_count, player_ids, players, created_at`

func scanRoster(row interface{ Scan(...interface{}) error }) (*models.Roster, error) {
	roster := &models.Roster{}
	var playerIDs pq.Int64Array
	var players []byte

	err := row.Scan(
		&roster.ID,
		&roster.Name,
		&roster.Season,
		&roster.MaxCapacity,
		&roster.CreatedBy,
		&roster.IsDiscoverable,
		&roster.LeagueID,
		&roster.TargetPlayerCount,
		&playerIDs,
		&players,
		&roster.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	roster.PlayerIDs = int64sToInts(playerIDs)
	if err := unmarshalJSONB(players, &roster.Players); err != nil {
		return nil, err
	}
	return roster, nil
}

func (r *postgresRosterRepository) Create(ctx context.Context, roster *models.Roster) error {
	players, err := marshalJSONB(roster.Players)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rosters (name, season, max_capacity, created_by, is_discoverable,
			league_id, target_player_count, player_ids, players)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		roster.Name,
		roster.Season,
		roster.MaxCapacity,
		roster.CreatedBy,
		roster.IsDiscoverable,
		roster.LeagueID,
		roster.TargetPlayerCount,
		pq.Array(intsToInt64s(roster.PlayerIDs)),
		players,
	).Scan(&roster.ID, &roster.CreatedAt)
}

func (r *postgresRosterRepository) GetByID(ctx context.Context, id int) (*models.Roster, error) {
	query := `SELECT ` + rosterColumns + ` FROM rosters WHERE id = $1`
	roster, err := scanRoster(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRosterNotFound
		}
		return nil, err
	}
	return roster, nil
}

// Update меняет только скалярные поля; состав меняется отдельными
// атомарными операциями AddPlayer/RemovePlayer.
func (r *postgresRosterRepository) Update(ctx context.Context, roster *models.Roster) error {
	query := `
		UPDATE rosters
		SET name = $1, season = $2, max_capacity = $3, is_discoverable = $4,
			league_id = $5, target_player_count = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		roster.Name,
		roster.Season,
		roster.MaxCapacity,
		roster.IsDiscoverable,
		roster.LeagueID,
		roster.TargetPlayerCount,
		roster.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterNotFound)
}

func (r *postgresRosterRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterNotFound)
}

func (r *postgresRosterRepository) ListDiscoverable(ctx context.Context) ([]*models.Roster, error) {
	query := `SELECT ` + rosterColumns + ` FROM rosters WHERE is_discoverable ORDER BY created_at DESC`
	return r.queryRosters(ctx, query)
}

func (r *postgresRosterRepository) ListByPlayer(ctx context.Context, userID int) ([]*models.Roster, error) {
	query := `SELECT ` + rosterColumns + ` FROM rosters WHERE $1 = ANY(player_ids) ORDER BY created_at DESC`
	return r.queryRosters(ctx, query, userID)
}

func (r *postgresRosterRepository) ListByManager(ctx context.Context, userID int) ([]*models.Roster, error) {
	query := `SELECT ` + rosterColumns + ` FROM rosters WHERE created_by = $1 ORDER BY created_at DESC`
	return r.queryRosters(ctx, query, userID)
}

func (r *postgresRosterRepository) ListIDsByPlayer(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM rosters WHERE $1 = ANY(player_ids)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postgresRosterRepository) queryRosters(ctx context.Context, query string, args ...interface{}) ([]*models.Roster, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make([]*models.Roster, 0)
	for rows.Next() {
		roster, scanErr := scanRoster(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rosters = append(rosters, roster)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rosters, nil
}

// AddPlayer добавляет игрока в оба списка одним UPDATE, охраняемым
// вместимостью. Ноль затронутых строк разбирается отдельным чтением:
// ростер отсутствует, игрок уже в составе (не ошибка) или состав полон.
func (r *postgresRosterRepository) AddPlayer(ctx context.Context, rosterID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE rosters SET
			player_ids = array_append(player_ids, $2),
			players = players || jsonb_build_array($3::jsonb)
		WHERE id = $1
		  AND NOT ($2 = ANY(player_ids))
		  AND cardinality(player_ids) < max_capacity`

	result, err := r.db.ExecContext(ctx, query, rosterID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	roster, err := r.GetByID(ctx, rosterID)
	if err != nil {
		return err
	}
	if roster.HasPlayer(record.UserID) {
		return nil // идемпотентно
	}
	return ErrRosterFull
}

func (r *postgresRosterRepository) RemovePlayer(ctx context.Context, rosterID, userID int) error {
	query := `
		UPDATE rosters SET
			player_ids = array_remove(player_ids, $2),
			players = (
				SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
				FROM jsonb_array_elements(players) elem
				WHERE (elem->>'user_id')::int <> $2
			)
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, rosterID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterNotFound)
}

func (r *postgresRosterRepository) UpdatePlayerRecord(ctx context.Context, rosterID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE rosters SET players = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN (elem->>'user_id')::int = $2 THEN $3::jsonb ELSE elem END
			), '[]'::jsonb)
			FROM jsonb_array_elements(players) elem
		)
		WHERE id = $1 AND $2 = ANY(player_ids)`

	result, err := r.db.ExecContext(ctx, query, rosterID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterNotFound)
}

func (r *postgresRosterRepository) ListInconsistentIDs(ctx context.Context) ([]int, error) {
	query := `
		SELECT id FROM rosters
		WHERE (
			SELECT COALESCE(array_agg((elem->>'user_id')::int ORDER BY (elem->>'user_id')::int), '{}')
			FROM jsonb_array_elements(players) elem
		) IS DISTINCT FROM (
			SELECT COALESCE(array_agg(pid ORDER BY pid), '{}')
			FROM unnest(player_ids) pid
		)`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// RepairPlayerIDs перестраивает индекс из записей: players — источник истины.
func (r *postgresRosterRepository) RepairPlayerIDs(ctx context.Context, rosterID int) error {
	query := `
		UPDATE rosters SET player_ids = (
			SELECT COALESCE(array_agg(DISTINCT (elem->>'user_id')::int), '{}')
			FROM jsonb_array_elements(players) elem
		)
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, rosterID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterNotFound)
}

func (r *postgresRosterRepository) CreateEvent(ctx context.Context, event *models.RosterEvent) error {
	query := `
		INSERT INTO roster_events (roster_id, title, location, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		event.RosterID,
		event.Title,
		event.Location,
		event.StartsAt,
		event.EndsAt,
		event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrRosterNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRosterRepository) ListEvents(ctx context.Context, rosterID int) ([]*models.RosterEvent, error) {
	query := `
		SELECT id, roster_id, title, location, starts_at, ends_at, created_by, created_at
		FROM roster_events
		WHERE roster_id = $1
		ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, rosterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.RosterEvent, 0)
	for rows.Next() {
		event := &models.RosterEvent{}
		if scanErr := rows.Scan(
			&event.ID,
			&event.RosterID,
			&event.Title,
			&event.Location,
			&event.StartsAt,
			&event.EndsAt,
			&event.CreatedBy,
			&event.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
