package content

// ArticleTypeAlias is the content type alias used for derived rows
const ArticleTypeAlias = "com_content.article"

// Schema contains SQL schema definitions for the content store
const Schema = `
-- Content types table
CREATE TABLE IF NOT EXISTS content_types (
    type_id INTEGER PRIMARY KEY AUTOINCREMENT,
    type_title TEXT NOT NULL,
    type_alias TEXT NOT NULL UNIQUE
);

INSERT OR IGNORE INTO content_types (type_title, type_alias) VALUES ('Article', 'com_content.article');

-- Articles table
CREATE TABLE IF NOT EXISTS content (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    alias TEXT NOT NULL,
    introtext TEXT NOT NULL DEFAULT '',
    fulltext TEXT NOT NULL DEFAULT '',
    catid INTEGER NOT NULL,
    created TEXT NOT NULL,
    created_by INTEGER NOT NULL,
    publish_up TEXT,
    state INTEGER NOT NULL DEFAULT 0,
    language TEXT NOT NULL DEFAULT '*',
    access INTEGER NOT NULL DEFAULT 1,
    images TEXT NOT NULL DEFAULT '{}',
    urls TEXT NOT NULL DEFAULT '{}',
    attribs TEXT NOT NULL DEFAULT '{}',
    metakey TEXT NOT NULL DEFAULT '',
    metadesc TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    version INTEGER NOT NULL DEFAULT 1,
    featured INTEGER NOT NULL DEFAULT 0
);

-- Unified content table (derived)
CREATE TABLE IF NOT EXISTS ucm_content (
    core_content_id INTEGER PRIMARY KEY AUTOINCREMENT,
    core_type_alias TEXT NOT NULL,
    core_title TEXT NOT NULL,
    core_alias TEXT NOT NULL,
    core_body TEXT NOT NULL DEFAULT '',
    core_state INTEGER NOT NULL DEFAULT 0,
    core_checked_out_time TEXT,
    core_access INTEGER NOT NULL DEFAULT 0,
    core_params TEXT NOT NULL DEFAULT '{}',
    core_featured INTEGER NOT NULL DEFAULT 0,
    core_metadata TEXT NOT NULL DEFAULT '{}',
    core_created_user_id INTEGER NOT NULL DEFAULT 0,
    core_created_time TEXT NOT NULL,
    core_modified_user_id INTEGER NOT NULL DEFAULT 0,
    core_modified_time TEXT NOT NULL,
    core_language TEXT NOT NULL DEFAULT '*',
    core_publish_up TEXT,
    core_publish_down TEXT,
    core_content_item_id INTEGER NOT NULL,
    core_images TEXT NOT NULL DEFAULT '{}',
    core_urls TEXT NOT NULL DEFAULT '{}',
    core_hits INTEGER NOT NULL DEFAULT 0,
    core_version INTEGER NOT NULL DEFAULT 1,
    core_ordering INTEGER NOT NULL DEFAULT 0,
    core_metakey TEXT NOT NULL DEFAULT '',
    core_metadesc TEXT NOT NULL DEFAULT '',
    core_catid INTEGER NOT NULL DEFAULT 0,
    core_type_id INTEGER NOT NULL,
    FOREIGN KEY (core_type_id) REFERENCES content_types(type_id)
);

-- Unified content base table (derived)
CREATE TABLE IF NOT EXISTS ucm_base (
    ucm_id INTEGER PRIMARY KEY AUTOINCREMENT,
    ucm_item_id INTEGER NOT NULL,
    ucm_type_id INTEGER NOT NULL,
    ucm_language_id INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (ucm_type_id) REFERENCES content_types(type_id)
);

-- Workflow associations (derived)
CREATE TABLE IF NOT EXISTS workflow_associations (
    item_id INTEGER NOT NULL,
    stage_id INTEGER NOT NULL,
    extension TEXT NOT NULL,
    PRIMARY KEY (item_id, extension)
);

-- Create indexes for faster queries
CREATE INDEX IF NOT EXISTS idx_content_title ON content(title);
CREATE INDEX IF NOT EXISTS idx_content_catid ON content(catid);
CREATE INDEX IF NOT EXISTS idx_ucm_content_item ON ucm_content(core_type_alias, core_content_item_id);
CREATE INDEX IF NOT EXISTS idx_ucm_base_item ON ucm_base(ucm_item_id);

-- Full-text search index
CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
    title,
    introtext,
    fulltext,
    content='content',
    content_rowid='id'
);

-- Triggers for FTS
CREATE TRIGGER IF NOT EXISTS content_fts_insert AFTER INSERT ON content BEGIN
    INSERT INTO content_fts(rowid, title, introtext, fulltext)
    VALUES (new.id, new.title, new.introtext, new.fulltext);
END;

CREATE TRIGGER IF NOT EXISTS content_fts_update AFTER UPDATE ON content BEGIN
    INSERT INTO content_fts(content_fts, rowid, title, introtext, fulltext)
    VALUES ('delete', old.id, old.title, old.introtext, old.fulltext);
    INSERT INTO content_fts(rowid, title, introtext, fulltext)
    VALUES (new.id, new.title, new.introtext, new.fulltext);
END;

CREATE TRIGGER IF NOT EXISTS content_fts_delete AFTER DELETE ON content BEGIN
    INSERT INTO content_fts(content_fts, rowid, title, introtext, fulltext)
    VALUES ('delete', old.id, old.title, old.introtext, old.fulltext);
END;
`
