package storage

const schemaSQL = `
-- Pages are discovered URLs; raw_content stays empty until extraction
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    raw_content TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    discovered_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    classified INTEGER NOT NULL DEFAULT 0 CHECK (classified IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_pages_classified ON pages(classified);
CREATE INDEX IF NOT EXISTS idx_pages_source ON pages(source);

-- One structured decomposition per page; element lists are JSON arrays
CREATE TABLE IF NOT EXISTS structured_contents (
    page_id INTEGER PRIMARY KEY REFERENCES pages(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    headers TEXT NOT NULL DEFAULT '[]',
    paragraphs TEXT NOT NULL DEFAULT '[]',
    links TEXT NOT NULL DEFAULT '[]',
    images TEXT NOT NULL DEFAULT '[]',
    lists TEXT NOT NULL DEFAULT '[]',
    clean_text TEXT NOT NULL DEFAULT '',
    word_count INTEGER,
    language TEXT NOT NULL DEFAULT 'tr',
    extracted_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_structured_word_count ON structured_contents(word_count);

-- One classification per page
CREATE TABLE IF NOT EXISTS classifications (
    page_id INTEGER PRIMARY KEY REFERENCES pages(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    confidence REAL NOT NULL,
    sentiment TEXT NOT NULL,
    sentiment_score REAL NOT NULL DEFAULT 0,
    keywords TEXT NOT NULL DEFAULT '[]',
    method TEXT NOT NULL,
    token_count INTEGER NOT NULL DEFAULT 0,
    language TEXT NOT NULL,
    model TEXT NOT NULL,
    classified_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_category ON classifications(category);

-- View joining the three stages for reporting
CREATE VIEW IF NOT EXISTS classified_pages AS
SELECT
    p.id, p.url, p.title, p.source,
    sc.language AS content_language, sc.word_count,
    c.category, c.confidence, c.sentiment, c.method, c.classified_at
FROM pages p
JOIN classifications c ON c.page_id = p.id
LEFT JOIN structured_contents sc ON sc.page_id = p.id;

-- Run metadata as key-value pairs
CREATE TABLE IF NOT EXISTS run_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
