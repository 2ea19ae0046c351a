package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS opportunities (
		notice_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		naics_code TEXT,
		set_aside_code TEXT,
		posted_date INTEGER,
		response_deadline INTEGER,
		archive_date INTEGER,
		pop_state TEXT,
		pop_city TEXT,
		estimated_value REAL,
		agency TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_opportunities_naics ON opportunities(naics_code);
	CREATE INDEX IF NOT EXISTS idx_opportunities_posted ON opportunities(posted_date);
	CREATE INDEX IF NOT EXISTS idx_opportunities_state ON opportunities(pop_state);

	CREATE TABLE IF NOT EXISTS company_profiles (
		company_id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		capability_statement TEXT,
		naics_codes TEXT,
		certifications TEXT,
		past_performance TEXT,
		locations TEXT,
		employee_count INTEGER,
		revenue_range TEXT,
		remote_capable INTEGER DEFAULT 0,
		active_status INTEGER DEFAULT 1,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_tenant ON company_profiles(tenant_id);

	CREATE TABLE IF NOT EXISTS embedding_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		level TEXT NOT NULL,
		chunk_index INTEGER DEFAULT 0,
		text_preview TEXT,
		token_count INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_entity ON embedding_records(entity_type, entity_id);

	CREATE TABLE IF NOT EXISTS match_results (
		company_id TEXT NOT NULL,
		opportunity_id TEXT NOT NULL,
		total_score REAL NOT NULL,
		confidence_level TEXT NOT NULL,
		components TEXT,
		computed_at INTEGER NOT NULL,
		PRIMARY KEY (company_id, opportunity_id)
	);
	CREATE INDEX IF NOT EXISTS idx_matches_company ON match_results(company_id);
	CREATE INDEX IF NOT EXISTS idx_matches_score ON match_results(total_score);

	CREATE TABLE IF NOT EXISTS weight_configurations (
		scope TEXT PRIMARY KEY,
		version INTEGER NOT NULL DEFAULT 1,
		weights TEXT NOT NULL,
		confidence_levels TEXT NOT NULL,
		algorithm_params TEXT,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertOpportunity(opp *models.Opportunity) error {
	query := `
		INSERT INTO opportunities (notice_id, title, description, naics_code, set_aside_code,
			posted_date, response_deadline, archive_date, pop_state, pop_city, estimated_value, agency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(notice_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			naics_code = excluded.naics_code,
			set_aside_code = excluded.set_aside_code,
			posted_date = excluded.posted_date,
			response_deadline = excluded.response_deadline,
			archive_date = excluded.archive_date,
			pop_state = excluded.pop_state,
			pop_city = excluded.pop_city,
			estimated_value = excluded.estimated_value,
			agency = excluded.agency
	`

	_, err := c.db.Exec(
		query,
		opp.NoticeID,
		opp.Title,
		opp.Description,
		opp.NAICSCode,
		opp.SetAsideCode,
		unixOrZero(opp.PostedDate),
		unixOrZero(opp.ResponseDeadline),
		unixOrZero(opp.ArchiveDate),
		opp.PlaceOfPerformance.State,
		opp.PlaceOfPerformance.City,
		opp.EstimatedValue,
		opp.Agency,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert opportunity: %w", err)
	}

	logger.Debug("Opportunity upserted", zap.String("notice_id", opp.NoticeID))
	return nil
}

func (c *Client) GetOpportunity(noticeID string) (*models.Opportunity, error) {
	query := `
		SELECT notice_id, title, description, naics_code, set_aside_code, posted_date,
			response_deadline, archive_date, pop_state, pop_city, estimated_value, agency
		FROM opportunities WHERE notice_id = ?
	`

	var opp models.Opportunity
	var posted, deadline, archive int64

	err := c.db.QueryRow(query, noticeID).Scan(
		&opp.NoticeID,
		&opp.Title,
		&opp.Description,
		&opp.NAICSCode,
		&opp.SetAsideCode,
		&posted,
		&deadline,
		&archive,
		&opp.PlaceOfPerformance.State,
		&opp.PlaceOfPerformance.City,
		&opp.EstimatedValue,
		&opp.Agency,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	opp.PostedDate = timeOrZero(posted)
	opp.ResponseDeadline = timeOrZero(deadline)
	opp.ArchiveDate = timeOrZero(archive)

	return &opp, nil
}

// SearchOpportunities returns candidates whose title or description contains
// any of the supplied tokens. Ranking happens in the search service.
func (c *Client) SearchOpportunities(tokens []string, limit int) ([]models.Opportunity, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var conditions []string
	var args []interface{}
	for _, token := range tokens {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + token + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT notice_id, title, description, naics_code, set_aside_code, posted_date,
			response_deadline, archive_date, pop_state, pop_city, estimated_value, agency
		FROM opportunities
		WHERE %s
		ORDER BY posted_date DESC
		LIMIT ?
	`, strings.Join(conditions, " OR "))

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.Opportunity
	for rows.Next() {
		var opp models.Opportunity
		var posted, deadline, archive int64

		err := rows.Scan(
			&opp.NoticeID,
			&opp.Title,
			&opp.Description,
			&opp.NAICSCode,
			&opp.SetAsideCode,
			&posted,
			&deadline,
			&archive,
			&opp.PlaceOfPerformance.State,
			&opp.PlaceOfPerformance.City,
			&opp.EstimatedValue,
			&opp.Agency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		opp.PostedDate = timeOrZero(posted)
		opp.ResponseDeadline = timeOrZero(deadline)
		opp.ArchiveDate = timeOrZero(archive)
		opportunities = append(opportunities, opp)
	}

	return opportunities, nil
}

func (c *Client) UpsertCompanyProfile(profile *models.CompanyProfile) error {
	naicsJSON, _ := json.Marshal(profile.NAICSCodes)
	certsJSON, _ := json.Marshal(profile.Certifications)
	perfJSON, _ := json.Marshal(profile.PastPerformance)
	locationsJSON, _ := json.Marshal(profile.Locations)

	query := `
		INSERT INTO company_profiles (company_id, tenant_id, capability_statement, naics_codes,
			certifications, past_performance, locations, employee_count, revenue_range,
			remote_capable, active_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			capability_statement = excluded.capability_statement,
			naics_codes = excluded.naics_codes,
			certifications = excluded.certifications,
			past_performance = excluded.past_performance,
			locations = excluded.locations,
			employee_count = excluded.employee_count,
			revenue_range = excluded.revenue_range,
			remote_capable = excluded.remote_capable,
			active_status = excluded.active_status,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		profile.CompanyID,
		profile.TenantID,
		profile.CapabilityStatement,
		string(naicsJSON),
		string(certsJSON),
		string(perfJSON),
		string(locationsJSON),
		profile.EmployeeCount,
		profile.RevenueRange,
		boolToInt(profile.RemoteCapable),
		boolToInt(profile.ActiveStatus),
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert company profile: %w", err)
	}

	logger.Debug("Company profile upserted",
		zap.String("company_id", profile.CompanyID),
		zap.String("tenant_id", profile.TenantID),
	)
	return nil
}

func (c *Client) GetCompanyProfile(companyID string) (*models.CompanyProfile, error) {
	query := `
		SELECT company_id, tenant_id, capability_statement, naics_codes, certifications,
			past_performance, locations, employee_count, revenue_range, remote_capable,
			active_status, updated_at
		FROM company_profiles WHERE company_id = ?
	`

	var profile models.CompanyProfile
	var naicsJSON, certsJSON, perfJSON, locationsJSON string
	var remoteCapable, activeStatus int
	var updatedAt int64

	err := c.db.QueryRow(query, companyID).Scan(
		&profile.CompanyID,
		&profile.TenantID,
		&profile.CapabilityStatement,
		&naicsJSON,
		&certsJSON,
		&perfJSON,
		&locationsJSON,
		&profile.EmployeeCount,
		&profile.RevenueRange,
		&remoteCapable,
		&activeStatus,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get company profile: %w", err)
	}

	json.Unmarshal([]byte(naicsJSON), &profile.NAICSCodes)
	json.Unmarshal([]byte(certsJSON), &profile.Certifications)
	json.Unmarshal([]byte(perfJSON), &profile.PastPerformance)
	json.Unmarshal([]byte(locationsJSON), &profile.Locations)
	profile.RemoteCapable = remoteCapable != 0
	profile.ActiveStatus = activeStatus != 0
	profile.UpdatedAt = time.Unix(updatedAt, 0)

	return &profile, nil
}

func (c *Client) ListProfilesByTenant(tenantID string, limit int) ([]models.CompanyProfile, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT company_id FROM company_profiles WHERE tenant_id = ? AND active_status = 1 ORDER BY updated_at DESC LIMIT ?`

	rows, err := c.db.Query(query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}

	var profiles []models.CompanyProfile
	for _, id := range ids {
		profile, err := c.GetCompanyProfile(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}

	return profiles, nil
}

func (c *Client) SaveMatchResult(result *models.MatchResult) error {
	componentsJSON, err := json.Marshal(result.Components)
	if err != nil {
		return fmt.Errorf("failed to marshal components: %w", err)
	}

	query := `
		INSERT INTO match_results (company_id, opportunity_id, total_score, confidence_level, components, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, opportunity_id) DO UPDATE SET
			total_score = excluded.total_score,
			confidence_level = excluded.confidence_level,
			components = excluded.components,
			computed_at = excluded.computed_at
	`

	_, err = c.db.Exec(
		query,
		result.CompanyID,
		result.OpportunityID,
		result.TotalScore,
		string(result.ConfidenceLevel),
		string(componentsJSON),
		result.ComputedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}

	logger.Debug("Match result saved",
		zap.String("company_id", result.CompanyID),
		zap.String("opportunity_id", result.OpportunityID),
		zap.Float64("total_score", result.TotalScore),
	)
	return nil
}

func (c *Client) GetMatchResult(companyID, opportunityID string) (*models.MatchResult, error) {
	query := `
		SELECT company_id, opportunity_id, total_score, confidence_level, components, computed_at
		FROM match_results WHERE company_id = ? AND opportunity_id = ?
	`

	return c.scanMatchResult(c.db.QueryRow(query, companyID, opportunityID))
}

func (c *Client) ListMatchesForCompany(companyID string, limit int) ([]models.MatchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT company_id, opportunity_id, total_score, confidence_level, components, computed_at
		FROM match_results WHERE company_id = ?
		ORDER BY total_score DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %w", err)
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		var r models.MatchResult
		var level, componentsJSON string
		var computedAt int64

		err := rows.Scan(&r.CompanyID, &r.OpportunityID, &r.TotalScore, &level, &componentsJSON, &computedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.ConfidenceLevel = models.ConfidenceLevel(level)
		json.Unmarshal([]byte(componentsJSON), &r.Components)
		r.ComputedAt = time.Unix(computedAt, 0)
		results = append(results, r)
	}

	return results, nil
}

func (c *Client) GetWeightConfiguration(scope string) (*models.WeightConfiguration, error) {
	query := `SELECT scope, version, weights, confidence_levels, algorithm_params, updated_at FROM weight_configurations WHERE scope = ?`

	var cfg models.WeightConfiguration
	var weightsJSON, levelsJSON, paramsJSON string
	var updatedAt int64

	err := c.db.QueryRow(query, scope).Scan(&cfg.Scope, &cfg.Version, &weightsJSON, &levelsJSON, &paramsJSON, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get weight configuration: %w", err)
	}

	if err := json.Unmarshal([]byte(weightsJSON), &cfg.Weights); err != nil {
		return nil, fmt.Errorf("malformed weights for scope %s: %w", scope, err)
	}
	if err := json.Unmarshal([]byte(levelsJSON), &cfg.ConfidenceLevels); err != nil {
		return nil, fmt.Errorf("malformed confidence levels for scope %s: %w", scope, err)
	}
	json.Unmarshal([]byte(paramsJSON), &cfg.AlgorithmParams)
	cfg.UpdatedAt = time.Unix(updatedAt, 0)

	return &cfg, nil
}

// UpsertWeightConfiguration is used by admin tooling and tests; the
// configuration provider itself never writes.
func (c *Client) UpsertWeightConfiguration(cfg *models.WeightConfiguration) error {
	weightsJSON, _ := json.Marshal(cfg.Weights)
	levelsJSON, _ := json.Marshal(cfg.ConfidenceLevels)
	paramsJSON, _ := json.Marshal(cfg.AlgorithmParams)

	query := `
		INSERT INTO weight_configurations (scope, version, weights, confidence_levels, algorithm_params, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET
			version = weight_configurations.version + 1,
			weights = excluded.weights,
			confidence_levels = excluded.confidence_levels,
			algorithm_params = excluded.algorithm_params,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(query, cfg.Scope, cfg.Version, string(weightsJSON), string(levelsJSON), string(paramsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert weight configuration: %w", err)
	}

	logger.Info("Weight configuration upserted", zap.String("scope", cfg.Scope))
	return nil
}

func (c *Client) InsertEmbeddingRecord(record *models.EmbeddingRecord) error {
	query := `
		INSERT INTO embedding_records (entity_type, entity_id, level, chunk_index, text_preview, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.EntityType,
		record.EntityID,
		record.Level,
		record.ChunkIndex,
		record.TextPreview,
		record.TokenCount,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert embedding record: %w", err)
	}

	return nil
}

// DeleteEmbeddingRecords removes superseded metadata before re-indexing.
func (c *Client) DeleteEmbeddingRecords(entityType, entityID string) error {
	_, err := c.db.Exec(`DELETE FROM embedding_records WHERE entity_type = ? AND entity_id = ?`, entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding records: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (c *Client) scanMatchResult(row rowScanner) (*models.MatchResult, error) {
	var r models.MatchResult
	var level, componentsJSON string
	var computedAt int64

	err := row.Scan(&r.CompanyID, &r.OpportunityID, &r.TotalScore, &level, &componentsJSON, &computedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get match result: %w", err)
	}

	r.ConfidenceLevel = models.ConfidenceLevel(level)
	json.Unmarshal([]byte(componentsJSON), &r.Components)
	r.ComputedAt = time.Unix(computedAt, 0)

	return &r, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
