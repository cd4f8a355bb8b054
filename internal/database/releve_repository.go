package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/domain"
)

const defaultPageSize = 100

// ReleveRepo implements domain.ReleveRepository.
type ReleveRepo struct {
	pool *pgxpool.Pool
}

func NewReleveRepo(pool *pgxpool.Pool) *ReleveRepo {
	return &ReleveRepo{pool: pool}
}

// List returns one page of releves as a feature collection, newest first.
func (r *ReleveRepo) List(ctx context.Context, filter domain.ReleveFilter) (*domain.RelevePage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := filter.Page
	if page < 0 {
		page = 0
	}

	where, args := buildReleveFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM releve").Scan(&total); err != nil {
		return nil, fmt.Errorf("count releves: %w", err)
	}

	var filtered int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM releve"+where, args...).Scan(&filtered); err != nil {
		return nil, fmt.Errorf("count filtered releves: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, id_dataset, cd_nom, nom_cite, date_min, date_max, observers, comment, ST_AsGeoJSON(geom)
		FROM releve%s
		ORDER BY date_min DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, page*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list releves: %w", err)
	}
	defer rows.Close()

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var (
			releve   domain.Releve
			geomJSON []byte
		)
		if err := rows.Scan(&releve.ID, &releve.DatasetID, &releve.TaxonCode, &releve.NomCite,
			&releve.DateMin, &releve.DateMax, &releve.Observers, &releve.Comment, &geomJSON); err != nil {
			return nil, fmt.Errorf("scan releve: %w", err)
		}
		feat, err := releveFeature(releve, geomJSON)
		if err != nil {
			return nil, fmt.Errorf("releve %d: %w", releve.ID, err)
		}
		fc.Append(feat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releves: %w", err)
	}

	return &domain.RelevePage{
		Items:         fc,
		Total:         total,
		TotalFiltered: filtered,
		Page:          page,
		Limit:         limit,
	}, nil
}

// Insert stores a releve given as a GeoJSON feature. Third dimensions are
// stripped from the geometry before storage. Returns the stored feature with
// its assigned id.
func (r *ReleveRepo) Insert(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error) {
	releve, err := releveFromFeature(feature)
	if err != nil {
		return nil, err
	}

	geomJSON, err := geojson.NewGeometry(feature.Geometry).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal geometry: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO releve (id_dataset, cd_nom, nom_cite, date_min, date_max, observers, comment, geom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, ST_Force2D(ST_SetSRID(ST_GeomFromGeoJSON($8), 4326)))
		RETURNING id`,
		releve.DatasetID, releve.TaxonCode, releve.NomCite, releve.DateMin, releve.DateMax,
		releve.Observers, releve.Comment, geomJSON,
	).Scan(&releve.ID)
	if err != nil {
		return nil, fmt.Errorf("insert releve: %w", err)
	}

	return releveFeature(releve, geomJSON)
}

// Delete removes a releve by id.
func (r *ReleveRepo) Delete(ctx context.Context, id int64) error {
	var deleted int64
	err := r.pool.QueryRow(ctx, "DELETE FROM releve WHERE id = $1 RETURNING id", id).Scan(&deleted)
	if err == pgx.ErrNoRows {
		return domain.ErrReleveNotFound
	}
	if err != nil {
		return fmt.Errorf("delete releve %d: %w", id, err)
	}
	return nil
}

// buildReleveFilter renders the WHERE clause for a filter. Returned clause is
// empty or starts with " WHERE".
func buildReleveFilter(filter domain.ReleveFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.TaxonCode != 0 {
		add("cd_nom = $%d", filter.TaxonCode)
	}
	if filter.Observer != "" {
		add("$%d = ANY(observers)", filter.Observer)
	}
	if !filter.DateLow.IsZero() {
		add("date_min >= $%d", filter.DateLow)
	}
	if !filter.DateUp.IsZero() {
		add("date_max <= $%d", filter.DateUp)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
