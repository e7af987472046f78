package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentchat/internal/filter"
	"rentchat/internal/model"
	"rentchat/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Only listings in this status are searchable.
const availableStatus = "available"

const propertyColumns = `
	id, title, description, property_type, location, address, monthly_rent,
	bedrooms, bathrooms, floor_area_sqm, amenities, details, status,
	listed_at, created_at, updated_at`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// searchQuery is a built property search: a count and a page select
// sharing the same filter arguments.
type searchQuery struct {
	count      string
	countArgs  []any
	selectSQL  string
	selectArgs []any
}

// buildSearchQuery turns a sanitized filter into SQL. Absent fields add no
// condition. With an embedding, results are ordered by cosine distance;
// otherwise Search is a full-text condition ranked with ts_rank.
func buildSearchQuery(f *filter.Filter, embedding []float32, limit, offset int) searchQuery {
	where := []string{"status = $1"}
	args := []any{availableStatus}
	next := 2

	add := func(cond string, arg any) {
		where = append(where, fmt.Sprintf(cond, next))
		args = append(args, arg)
		next++
	}

	var searchText string
	if f != nil {
		if f.Location != nil {
			pattern := "%" + utils.EscapeLike(*f.Location) + "%"
			where = append(where, fmt.Sprintf("(location ILIKE $%d OR address ILIKE $%d)", next, next))
			args = append(args, pattern)
			next++
		}
		if f.PropertyType != nil {
			add("property_type ILIKE $%d", "%"+utils.EscapeLike(*f.PropertyType)+"%")
		}
		if f.MinPrice != nil {
			add("monthly_rent >= $%d", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			add("monthly_rent <= $%d", *f.MaxPrice)
		}
		if len(f.Amenities) > 0 {
			conds, params, newIndex := utils.BuildFuzzyAmenityQuery(f.Amenities, next)
			where = append(where, conds...)
			args = append(args, params...)
			next = newIndex
		}
		if f.Search != nil {
			searchText = *f.Search
		}
	}

	var relevance, orderBy string
	switch {
	case len(embedding) > 0:
		relevance = fmt.Sprintf("COALESCE(1 - (embedding <=> $%d), 0)", next)
		orderBy = fmt.Sprintf("embedding <=> $%d ASC NULLS LAST, listed_at DESC NULLS LAST", next)
		args = append(args, pgvector.NewVector(embedding))
		next++
	case searchText != "":
		add("search_vector @@ plainto_tsquery('english', $%d)", searchText)
		relevance = fmt.Sprintf("ts_rank(search_vector, plainto_tsquery('english', $%d))", next-1)
		orderBy = "relevance DESC, listed_at DESC NULLS LAST"
	default:
		relevance = "0"
		orderBy = "listed_at DESC NULLS LAST, id DESC"
	}

	whereClause := strings.Join(where, " AND ")

	// The embedding argument is only referenced by the select.
	countArgs := args
	if len(embedding) > 0 {
		countArgs = args[:len(args)-1]
	}

	selectArgs := append(append([]any{}, args...), limit, offset)

	return searchQuery{
		count:     "SELECT COUNT(*) FROM properties WHERE " + whereClause,
		countArgs: countArgs,
		selectSQL: fmt.Sprintf(`SELECT %s,
	%s AS relevance
FROM properties
WHERE %s
ORDER BY %s
LIMIT $%d OFFSET $%d`, propertyColumns, relevance, whereClause, orderBy, next, next+1),
		selectArgs: selectArgs,
	}
}

// SearchProperties returns one page of available properties matching f
// and the total number of matches.
func (r *PostgresRepository) SearchProperties(
	ctx context.Context,
	f *filter.Filter,
	embedding []float32,
	limit, offset int,
) ([]model.Property, int, error) {
	q := buildSearchQuery(f, embedding, limit, offset)

	var total int
	if err := r.db.GetContext(ctx, &total, q.count, q.countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	properties := []model.Property{}
	if total == 0 {
		return properties, 0, nil
	}

	if err := r.db.SelectContext(ctx, &properties, q.selectSQL, q.selectArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch properties: %w", err)
	}

	return properties, total, nil
}

// GetPropertyByID retrieves a single available property, or nil when
// there is none.
func (r *PostgresRepository) GetPropertyByID(ctx context.Context, id int64) (*model.Property, error) {
	var property model.Property
	query := "SELECT " + propertyColumns + " FROM properties WHERE id = $1 AND status = $2"
	err := r.db.GetContext(ctx, &property, query, id, availableStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

// PropertiesMissingEmbedding returns up to limit available properties that
// have no embedding yet.
func (r *PostgresRepository) PropertiesMissingEmbedding(ctx context.Context, limit int) ([]model.Property, error) {
	properties := []model.Property{}
	query := "SELECT " + propertyColumns + ` FROM properties
		WHERE status = $1 AND embedding IS NULL
		ORDER BY id
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &properties, query, availableStatus, limit); err != nil {
		return nil, fmt.Errorf("failed to list properties without embedding: %w", err)
	}
	return properties, nil
}

// BatchUpdateEmbeddings stores embeddings in one transaction. It returns
// the number of rows updated and a message per failed item.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var failures []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE properties SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to prepare statement: %v", err)}
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.PropertyID); err != nil {
			failures = append(failures, fmt.Sprintf("property %d: %v", item.PropertyID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(failures, fmt.Sprintf("failed to commit transaction: %v", err))
	}

	return success, failures
}

// LogSearch records an executed search
func (r *PostgresRepository) LogSearch(ctx context.Context, entry model.SearchLogEntry) error {
	filterJSON, err := json.Marshal(entry.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	query := `
		INSERT INTO search_logs (source, filter, result_count, returned_property_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.Source, filterJSON, entry.ResultCount, pq.Array(entry.PropertyIDs), entry.ResponseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}
