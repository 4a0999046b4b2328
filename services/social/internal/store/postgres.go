package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// NewPostgres returns a Store backed by pool.
func NewPostgres(pool *pgxpool.Pool) Store {
	return Store{
		Posts:    NewPostgresPostStore(pool),
		Likes:    NewPostgresRelationStore(pool, "likes", "user_id", "post_id"),
		Follows:  NewPostgresRelationStore(pool, "follows", "follower_id", "following_id"),
		Comments: NewPostgresCommentStore(pool),
		Profiles: NewPostgresProfileStore(pool),
	}
}

// mapErr translates driver errors into store sentinels. A malformed uuid
// can never match a row, so it reads as not found.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "22P02", "23503":
			return ErrNotFound
		}
	}
	return err
}

// PostgresPostStore persists posts in Postgres.
type PostgresPostStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPostStore(pool *pgxpool.Pool) *PostgresPostStore {
	return &PostgresPostStore{pool: pool}
}

const postColumns = `id::text, user_id::text, image_url, prompt, negative_prompt, model_name,
	steps, guidance, width, height, is_public, is_deleted, created_at`

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.UserID, &p.ImageURL, &p.Prompt, &p.NegativePrompt, &p.ModelName,
		&p.Steps, &p.Guidance, &p.Width, &p.Height, &p.IsPublic, &p.IsDeleted, &p.CreatedAt)
	return p, err
}

func (s *PostgresPostStore) CreatePost(ctx context.Context, p Post) (Post, error) {
	q := `INSERT INTO posts (user_id, image_url, prompt, negative_prompt, model_name,
	                         steps, guidance, width, height, is_public)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	      RETURNING ` + postColumns
	out, err := scanPost(s.pool.QueryRow(ctx, q, p.UserID, p.ImageURL, p.Prompt, p.NegativePrompt,
		p.ModelName, p.Steps, p.Guidance, p.Width, p.Height, p.IsPublic))
	return out, mapErr(err)
}

func (s *PostgresPostStore) GetPost(ctx context.Context, id string) (Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	p, err := scanPost(s.pool.QueryRow(ctx, q, id))
	return p, mapErr(err)
}

func (s *PostgresPostStore) ListPublic(ctx context.Context, since time.Time, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + postColumns + `
	      FROM posts
	      WHERE is_public AND NOT is_deleted AND created_at >= $1
	      ORDER BY created_at DESC, id ASC
	      LIMIT $2`
	rows, err := s.pool.Query(ctx, q, since, limit)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (s *PostgresPostStore) ListByUser(ctx context.Context, userID string, includePrivate bool, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + postColumns + `
	      FROM posts
	      WHERE user_id = $1 AND NOT is_deleted AND (is_public OR $2)
	      ORDER BY created_at DESC, id ASC
	      LIMIT $3`
	rows, err := s.pool.Query(ctx, q, userID, includePrivate, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresPostStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE posts SET is_deleted = true WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresPostStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posts WHERE user_id = $1 AND NOT is_deleted`, userID).Scan(&n)
	return n, mapErr(err)
}

// PostgresRelationStore persists one engagement kind in a two-column table
// whose primary key is (actor, target).
type PostgresRelationStore struct {
	pool      *pgxpool.Pool
	table     string
	actorCol  string
	targetCol string
}

// NewPostgresRelationStore binds a store to a table. The names are
// interpolated into SQL and must be trusted constants.
func NewPostgresRelationStore(pool *pgxpool.Pool, table, actorCol, targetCol string) *PostgresRelationStore {
	return &PostgresRelationStore{pool: pool, table: table, actorCol: actorCol, targetCol: targetCol}
}

func (s *PostgresRelationStore) Exists(ctx context.Context, actorID, targetID string) (bool, error) {
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`, s.table, s.actorCol, s.targetCol)
	var ok bool
	if err := s.pool.QueryRow(ctx, q, actorID, targetID).Scan(&ok); err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (s *PostgresRelationStore) Insert(ctx context.Context, actorID, targetID string) error {
	q := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`, s.table, s.actorCol, s.targetCol)
	_, err := s.pool.Exec(ctx, q, actorID, targetID)
	return mapErr(err)
}

func (s *PostgresRelationStore) Delete(ctx context.Context, actorID, targetID string) (bool, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`, s.table, s.actorCol, s.targetCol)
	tag, err := s.pool.Exec(ctx, q, actorID, targetID)
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresRelationStore) CountByTargets(ctx context.Context, targetIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	q := fmt.Sprintf(`SELECT %[2]s::text, count(*) FROM %[1]s WHERE %[2]s = ANY($1::uuid[]) GROUP BY %[2]s`, s.table, s.targetCol)
	rows, err := s.pool.Query(ctx, q, targetIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *PostgresRelationStore) CountByActor(ctx context.Context, actorID string) (int, error) {
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`, s.table, s.actorCol)
	var n int
	err := s.pool.QueryRow(ctx, q, actorID).Scan(&n)
	return n, mapErr(err)
}

func (s *PostgresRelationStore) TargetsOf(ctx context.Context, actorID string, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(targetIDs) == 0 {
		return out, nil
	}
	q := fmt.Sprintf(`SELECT %[3]s::text FROM %[1]s WHERE %[2]s = $1 AND %[3]s = ANY($2::uuid[])`, s.table, s.actorCol, s.targetCol)
	rows, err := s.pool.Query(ctx, q, actorID, targetIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// PostgresCommentStore persists comments in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentColumns = `id::text, post_id::text, user_id::text, parent_comment_id::text, content, created_at`

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentID, &c.Content, &c.CreatedAt)
	return c, err
}

func (s *PostgresCommentStore) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	q := `INSERT INTO comments (post_id, user_id, parent_comment_id, content)
	      VALUES ($1, $2, $3, $4)
	      RETURNING ` + commentColumns
	out, err := scanComment(s.pool.QueryRow(ctx, q, c.PostID, c.UserID, c.ParentID, c.Content))
	return out, mapErr(err)
}

func (s *PostgresCommentStore) GetComment(ctx context.Context, id string) (Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	return c, mapErr(err)
}

func (s *PostgresCommentStore) DeleteComment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	q := `SELECT ` + commentColumns + `
	      FROM comments
	      WHERE post_id = $1
	      ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, q, postID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCommentStore) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT post_id::text, count(*) FROM comments WHERE post_id = ANY($1::uuid[]) GROUP BY post_id`, postIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// PostgresProfileStore persists profiles in Postgres.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

const profileColumns = `id::text, username, display_name, avatar_url, bio, created_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt)
	return p, err
}

func (s *PostgresProfileStore) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	q := `INSERT INTO profiles (id, username, display_name, avatar_url, bio)
	      VALUES ($1, $2, $3, $4, $5)
	      RETURNING ` + profileColumns
	out, err := scanProfile(s.pool.QueryRow(ctx, q, p.ID, p.Username, p.DisplayName, p.AvatarURL, p.Bio))
	return out, mapErr(err)
}

func (s *PostgresProfileStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	return p, mapErr(err)
}

func (s *PostgresProfileStore) GetByUsername(ctx context.Context, username string) (Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(username) = lower($1)`, username))
	return p, mapErr(err)
}

func (s *PostgresProfileStore) GetProfiles(ctx context.Context, ids []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *PostgresProfileStore) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	q := `UPDATE profiles SET display_name = $2, avatar_url = $3, bio = $4
	      WHERE id = $1
	      RETURNING ` + profileColumns
	out, err := scanProfile(s.pool.QueryRow(ctx, q, p.ID, p.DisplayName, p.AvatarURL, p.Bio))
	return out, mapErr(err)
}
