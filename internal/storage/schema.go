package storage

import "fmt"

// Materialized summary names accepted by RefreshMaterialized.
const (
	YearlyDisorderSummary  = "yearly_disorder_summary"
	CountryDisorderSummary = "country_disorder_summary"
)

// pk returns the auto-incrementing primary key column for the engine.
func pk(driver, col string) string {
	switch driver {
	case "mysql":
		return col + " INT AUTO_INCREMENT PRIMARY KEY"
	case "sqlite":
		return col + " INTEGER PRIMARY KEY AUTOINCREMENT"
	default: // postgres
		return col + " SERIAL PRIMARY KEY"
	}
}

func bigpk(driver, col string) string {
	switch driver {
	case "mysql":
		return col + " BIGINT AUTO_INCREMENT PRIMARY KEY"
	case "sqlite":
		return col + " INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return col + " BIGSERIAL PRIMARY KEY"
	}
}

// index builds a CREATE INDEX statement. MySQL has no IF NOT EXISTS for
// indexes; Init tolerates the duplicate-name error on re-runs instead.
func index(driver, name, table, cols string) string {
	ifNotExists := "IF NOT EXISTS "
	if driver == "mysql" {
		ifNotExists = ""
	}
	return fmt.Sprintf("CREATE INDEX %s%s ON %s (%s)", ifNotExists, name, table, cols)
}

// Statements returns the star-schema DDL for the given engine, in execution
// order: dimensions, fact table, indexes, then the derived summary tables.
// Foreign keys are declared table-level; MySQL silently drops inline
// REFERENCES clauses.
func Statements(driver string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS countries (
			%s,
			country_name VARCHAR(255) NOT NULL UNIQUE,
			region VARCHAR(100),
			sub_region VARCHAR(100),
			country_code VARCHAR(3)
		)`, pk(driver, "country_id")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS mental_disorders (
			%s,
			disorder_name VARCHAR(255) NOT NULL UNIQUE,
			disorder_category VARCHAR(100),
			icd_code VARCHAR(20)
		)`, pk(driver, "disorder_id")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS health_measures (
			%s,
			measure_name VARCHAR(255) NOT NULL UNIQUE,
			unit_of_measurement VARCHAR(50)
		)`, pk(driver, "measure_id")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS age_groups (
			%s,
			age_group_name VARCHAR(50) NOT NULL UNIQUE,
			age_start INT,
			age_end INT
		)`, pk(driver, "age_group_id")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sex_categories (
			%s,
			sex_name VARCHAR(20) NOT NULL UNIQUE
		)`, pk(driver, "sex_id")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS mental_health_data (
			%s,
			country_id INT NOT NULL,
			disorder_id INT NOT NULL,
			measure_id INT NOT NULL,
			age_group_id INT NOT NULL,
			sex_id INT NOT NULL,
			year INT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			upper_bound DOUBLE PRECISION NOT NULL,
			lower_bound DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_year CHECK (year BETWEEN 1980 AND 2030),
			CONSTRAINT valid_value CHECK (value >= 0),
			CONSTRAINT valid_bounds CHECK (upper_bound >= lower_bound),
			FOREIGN KEY (country_id) REFERENCES countries(country_id),
			FOREIGN KEY (disorder_id) REFERENCES mental_disorders(disorder_id),
			FOREIGN KEY (measure_id) REFERENCES health_measures(measure_id),
			FOREIGN KEY (age_group_id) REFERENCES age_groups(age_group_id),
			FOREIGN KEY (sex_id) REFERENCES sex_categories(sex_id)
		)`, bigpk(driver, "id")),

		index(driver, "idx_mhd_disorder_year", "mental_health_data", "disorder_id, year"),
		index(driver, "idx_mhd_country_disorder", "mental_health_data", "country_id, disorder_id"),
		index(driver, "idx_mhd_measure", "mental_health_data", "measure_id"),

		`CREATE TABLE IF NOT EXISTS yearly_disorder_summary (
			disorder_id INT NOT NULL,
			measure_id INT NOT NULL,
			year INT NOT NULL,
			mean_value DOUBLE PRECISION,
			min_value DOUBLE PRECISION,
			max_value DOUBLE PRECISION,
			observation_count INT NOT NULL,
			PRIMARY KEY (disorder_id, measure_id, year)
		)`,

		`CREATE TABLE IF NOT EXISTS country_disorder_summary (
			country_id INT NOT NULL,
			disorder_id INT NOT NULL,
			measure_id INT NOT NULL,
			mean_value DOUBLE PRECISION,
			observation_count INT NOT NULL,
			PRIMARY KEY (country_id, disorder_id, measure_id)
		)`,
	}
}
