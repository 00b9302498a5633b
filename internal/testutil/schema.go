package testutil

// SchemaDDL creates the relational schema the ingest pipeline writes to. The
// pipeline itself never creates tables; tests apply this fixture first.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS journals (
	journal_id   BIGSERIAL PRIMARY KEY,
	journal_name VARCHAR(255) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS sources (
	source_id   BIGSERIAL PRIMARY KEY,
	source_name VARCHAR(100) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS authors (
	author_id   BIGSERIAL PRIMARY KEY,
	author_name VARCHAR(255) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS papers (
	paper_id      VARCHAR(20) PRIMARY KEY,
	sha           VARCHAR(64),
	title         TEXT NOT NULL,
	abstract      TEXT NOT NULL DEFAULT '',
	publish_year  INT NOT NULL DEFAULT 0,
	doi           VARCHAR(255),
	journal_id    BIGINT REFERENCES journals(journal_id),
	source_id     BIGINT REFERENCES sources(source_id),
	is_covid19    BOOLEAN NOT NULL DEFAULT FALSE,
	has_full_text BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS paper_authors (
	paper_id     VARCHAR(20) NOT NULL REFERENCES papers(paper_id),
	author_id    BIGINT NOT NULL REFERENCES authors(author_id),
	author_order INT NOT NULL,
	PRIMARY KEY (paper_id, author_id)
);

CREATE TABLE IF NOT EXISTS paper_metrics (
	paper_id            VARCHAR(20) PRIMARY KEY REFERENCES papers(paper_id),
	author_count        INT NOT NULL,
	abstract_word_count INT NOT NULL,
	paper_age           INT
);
`

// TableNames lists the tables of SchemaDDL in dependency order.
var TableNames = []string{"journals", "sources", "authors", "papers", "paper_authors", "paper_metrics"}

//Personal.AI order the ending
