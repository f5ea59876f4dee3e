package postgres

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Storage is a Postgres-backed implementation of the storage interface.
// UpdateGame locks the game row with SELECT ... FOR UPDATE for the duration of the mutator.
type Storage struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New connects to Postgres and applies the schema
func New(ctx context.Context, cfg Config) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	s := NewWithPool(pool)
	if err := s.Migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an existing pool. The schema is not applied.
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Migrate creates any missing tables and indexes
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Close releases every pooled connection
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// runTx executes fn inside a transaction.
// If fn returns an error the tx rolls back, else it commits.
func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (id, display_name, is_guest, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, is_guest = EXCLUDED.is_guest`,
		string(player.ID), player.DisplayName, player.IsGuest, player.CreatedAt,
	)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		p        model.Player
		playerID string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, is_guest, created_at FROM players WHERE id = $1`, string(id),
	).Scan(&playerID, &p.DisplayName, &p.IsGuest, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	p.ID = model.PlayerID(playerID)
	return &p, nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO registered_players (player_id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id) DO UPDATE SET
			username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at`,
		string(rp.PlayerID), rp.Username, rp.PasswordHash, rp.CreatedAt, rp.UpdatedAt,
	)
	return err
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	var (
		rp       model.RegisteredPlayer
		playerID string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT player_id, username, password_hash, created_at, updated_at
		FROM registered_players WHERE username = $1`, username,
	).Scan(&playerID, &rp.Username, &rp.PasswordHash, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	rp.PlayerID = model.PlayerID(playerID)
	return &rp, nil
}

// Category operations

const categoryColumns = `id, name, available, total_questions, easy_questions, medium_questions, hard_questions, updated_at`

func (s *Storage) SyncCategories(ctx context.Context, categories []model.Category) error {
	ids := make([]int32, len(categories))
	for i, c := range categories {
		ids[i] = int32(c.ID)
	}

	return runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE categories SET available = FALSE WHERE available AND NOT (id = ANY($1))`, ids,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, c := range categories {
			batch.Queue(`
				INSERT INTO categories (`+categoryColumns+`)
				VALUES ($1, $2, TRUE, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					available = TRUE,
					total_questions = EXCLUDED.total_questions,
					easy_questions = EXCLUDED.easy_questions,
					medium_questions = EXCLUDED.medium_questions,
					hard_questions = EXCLUDED.hard_questions,
					updated_at = EXCLUDED.updated_at`,
				int32(c.ID), c.Name, c.TotalQuestions, c.EasyQuestions, c.MediumQuestions, c.HardQuestions, c.UpdatedAt,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Storage) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE available ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) GetCategory(ctx context.Context, id model.CategoryID) (*model.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, int32(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanCategory(row pgx.Row) (model.Category, error) {
	var (
		c  model.Category
		id int32
	)
	err := row.Scan(&id, &c.Name, &c.Available, &c.TotalQuestions,
		&c.EasyQuestions, &c.MediumQuestions, &c.HardQuestions, &c.UpdatedAt)
	c.ID = model.CategoryID(id)
	return c, err
}

// Game operations

const gameColumns = `g.id, g.category_id, g.host_id, g.question_count, g.current_question,
	g.started_at, g.ended_at, g.created_at, g.updated_at`

func (s *Storage) CreateGame(ctx context.Context, detail *model.GameDetail) error {
	return runTx(ctx, s.pool, func(tx pgx.Tx) error {
		g := detail.Game
		_, err := tx.Exec(ctx, `
			INSERT INTO games (id, category_id, host_id, question_count, current_question,
				started_at, ended_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			string(g.ID), int32(g.CategoryID), string(g.HostID), g.QuestionCount, g.CurrentQuestion,
			g.StartedAt, g.EndedAt, g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "games_pkey") {
				return model.ErrGameExists
			}
			return err
		}

		batch := &pgx.Batch{}
		for _, q := range detail.Questions {
			queueInsertQuestion(batch, q)
		}
		for _, p := range detail.Participations {
			queueInsertParticipation(batch, p)
		}
		for _, a := range detail.Answers {
			queueInsertAnswer(batch, a)
		}
		return mapAnswerConflict(tx.SendBatch(ctx, batch).Close())
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games g WHERE g.id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *Storage) GetGameDetail(ctx context.Context, id model.GameID) (*model.GameDetail, error) {
	return loadDetail(ctx, s.pool, id, false)
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.Mutator) (*model.GameDetail, error) {
	var result *model.GameDetail

	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := loadDetail(ctx, tx, id, true)
		if err != nil {
			return err
		}

		working := current.Clone()
		if err := fn(working); err != nil {
			if errors.Is(err, storage.ErrSkipWrite) {
				result = current
				return nil
			}
			return err
		}

		if err := writeDetail(ctx, tx, current, working); err != nil {
			return err
		}
		result = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadDetail reads a game with all of its rows. With forUpdate the game row
// stays locked until the surrounding transaction ends.
func loadDetail(ctx context.Context, q querier, id model.GameID, forUpdate bool) (*model.GameDetail, error) {
	query := `SELECT ` + gameColumns + ` FROM games g WHERE g.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	g, err := scanGame(q.QueryRow(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	detail := &model.GameDetail{Game: g}
	if detail.Questions, err = loadQuestions(ctx, q, id); err != nil {
		return nil, err
	}
	if detail.Participations, err = loadParticipations(ctx, q, id); err != nil {
		return nil, err
	}
	if detail.Answers, err = loadAnswers(ctx, q, id); err != nil {
		return nil, err
	}
	return detail, nil
}

func scanGame(row pgx.Row) (model.Game, error) {
	var (
		g                  model.Game
		id, hostID         string
		categoryID         int32
		startedAt, endedAt *time.Time
	)
	err := row.Scan(&id, &categoryID, &hostID, &g.QuestionCount, &g.CurrentQuestion,
		&startedAt, &endedAt, &g.CreatedAt, &g.UpdatedAt)
	g.ID = model.GameID(id)
	g.CategoryID = model.CategoryID(categoryID)
	g.HostID = model.PlayerID(hostID)
	g.StartedAt = startedAt
	g.EndedAt = endedAt
	return g, err
}

func loadQuestions(ctx context.Context, q querier, id model.GameID) ([]model.Question, error) {
	rows, err := q.Query(ctx, `
		SELECT id, position, text, correct_answer, incorrect_answers, correct_index,
			difficulty, type, started_at, ended_at
		FROM questions WHERE game_id = $1 ORDER BY position`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var (
			qu  model.Question
			qid string
		)
		if err := rows.Scan(&qid, &qu.Position, &qu.Text, &qu.CorrectAnswer, &qu.IncorrectAnswers,
			&qu.CorrectIndex, &qu.Difficulty, &qu.Type, &qu.StartedAt, &qu.EndedAt); err != nil {
			return nil, err
		}
		qu.ID = model.QuestionID(qid)
		qu.GameID = id
		out = append(out, qu)
	}
	return out, rows.Err()
}

func loadParticipations(ctx context.Context, q querier, id model.GameID) ([]model.Participation, error) {
	rows, err := q.Query(ctx, `
		SELECT id, player_id, display_name, score, is_host, won, joined_at
		FROM participations WHERE game_id = $1 ORDER BY joined_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participation
	for rows.Next() {
		var (
			p             model.Participation
			pid, playerID string
		)
		if err := rows.Scan(&pid, &playerID, &p.DisplayName, &p.Score, &p.IsHost, &p.Won, &p.JoinedAt); err != nil {
			return nil, err
		}
		p.ID = model.ParticipationID(pid)
		p.PlayerID = model.PlayerID(playerID)
		p.GameID = id
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadAnswers(ctx context.Context, q querier, id model.GameID) ([]model.Answer, error) {
	rows, err := q.Query(ctx, `
		SELECT id, participation_id, player_id, question_id, position, text, correct, created_at
		FROM answers WHERE game_id = $1 ORDER BY created_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		var (
			a                          model.Answer
			aid, partID, playerID, qID string
		)
		if err := rows.Scan(&aid, &partID, &playerID, &qID, &a.Position, &a.Text, &a.Correct, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ID = model.AnswerID(aid)
		a.ParticipationID = model.ParticipationID(partID)
		a.PlayerID = model.PlayerID(playerID)
		a.QuestionID = model.QuestionID(qID)
		a.GameID = id
		out = append(out, a)
	}
	return out, rows.Err()
}

// writeDetail persists the differences between before and after.
// Questions and answers are never deleted by a transition.
func writeDetail(ctx context.Context, tx pgx.Tx, before, after *model.GameDetail) error {
	g := after.Game
	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE games SET current_question = $2, started_at = $3, ended_at = $4, updated_at = $5
		WHERE id = $1`,
		string(g.ID), g.CurrentQuestion, g.StartedAt, g.EndedAt, g.UpdatedAt,
	)

	for _, q := range after.Questions {
		prev, err := before.QuestionAt(q.Position)
		if err != nil {
			queueInsertQuestion(batch, q)
			continue
		}
		if !sameTime(prev.StartedAt, q.StartedAt) || !sameTime(prev.EndedAt, q.EndedAt) {
			batch.Queue(`UPDATE questions SET started_at = $2, ended_at = $3 WHERE id = $1`,
				string(q.ID), q.StartedAt, q.EndedAt)
		}
	}

	for _, p := range after.Participations {
		prev := before.Participation(p.PlayerID)
		switch {
		case prev == nil:
			queueInsertParticipation(batch, p)
		case *prev != p:
			batch.Queue(`UPDATE participations SET display_name = $2, score = $3, won = $4 WHERE id = $1`,
				string(p.ID), p.DisplayName, p.Score, p.Won)
		}
	}

	known := make(map[model.AnswerID]bool, len(before.Answers))
	for _, a := range before.Answers {
		known[a.ID] = true
	}
	for _, a := range after.Answers {
		if !known[a.ID] {
			queueInsertAnswer(batch, a)
		}
	}

	return mapAnswerConflict(tx.SendBatch(ctx, batch).Close())
}

func queueInsertQuestion(batch *pgx.Batch, q model.Question) {
	batch.Queue(`
		INSERT INTO questions (id, game_id, position, text, correct_answer, incorrect_answers,
			correct_index, difficulty, type, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(q.ID), string(q.GameID), q.Position, q.Text, q.CorrectAnswer, q.IncorrectAnswers,
		q.CorrectIndex, q.Difficulty, q.Type, q.StartedAt, q.EndedAt,
	)
}

func queueInsertParticipation(batch *pgx.Batch, p model.Participation) {
	batch.Queue(`
		INSERT INTO participations (id, game_id, player_id, display_name, score, is_host, won, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(p.ID), string(p.GameID), string(p.PlayerID), p.DisplayName, p.Score, p.IsHost, p.Won, p.JoinedAt,
	)
}

func queueInsertAnswer(batch *pgx.Batch, a model.Answer) {
	batch.Queue(`
		INSERT INTO answers (id, game_id, participation_id, player_id, question_id, position, text, correct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(a.ID), string(a.GameID), string(a.ParticipationID), string(a.PlayerID), string(a.QuestionID),
		a.Position, a.Text, a.Correct, a.CreatedAt,
	)
}

func mapAnswerConflict(err error) error {
	if isUniqueViolation(err, "answers_participation_question_key") {
		return model.ErrDuplicateAnswer
	}
	return err
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Listing operations

func (s *Storage) ListPlayerGames(ctx context.Context, playerID model.PlayerID) ([]model.GameSummary, error) {
	return s.listSummaries(ctx, `
		SELECT `+gameColumns+`,
			(SELECT count(*) FROM participations c WHERE c.game_id = g.id)
		FROM games g
		JOIN participations p ON p.game_id = g.id
		WHERE p.player_id = $1
		ORDER BY g.created_at DESC`, string(playerID))
}

func (s *Storage) ListLiveGames(ctx context.Context, limit int) ([]model.GameSummary, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.listSummaries(ctx, `
		SELECT `+gameColumns+`,
			(SELECT count(*) FROM participations c WHERE c.game_id = g.id)
		FROM games g
		WHERE g.started_at IS NOT NULL AND g.ended_at IS NULL
		ORDER BY g.started_at DESC
		LIMIT $1`, lim)
}

func (s *Storage) listSummaries(ctx context.Context, query string, args ...any) ([]model.GameSummary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.GameSummary{}
	for rows.Next() {
		var (
			sum                model.GameSummary
			id, hostID         string
			categoryID         int32
			startedAt, endedAt *time.Time
			count              int64
		)
		g := &sum.Game
		if err := rows.Scan(&id, &categoryID, &hostID, &g.QuestionCount, &g.CurrentQuestion,
			&startedAt, &endedAt, &g.CreatedAt, &g.UpdatedAt, &count); err != nil {
			return nil, err
		}
		g.ID = model.GameID(id)
		g.CategoryID = model.CategoryID(categoryID)
		g.HostID = model.PlayerID(hostID)
		g.StartedAt = startedAt
		g.EndedAt = endedAt
		sum.PlayerCount = int(count)
		out = append(out, sum)
	}
	return out, rows.Err()
}
