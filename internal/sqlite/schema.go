package sqlite

// Every record is one row. type and name are copied out of the document so
// they can be indexed; document holds the full record as JSON.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    document TEXT NOT NULL CHECK (json_valid(document))
);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
`

const (
	selectDocument = `SELECT document FROM items WHERE id = ?`
	selectAll      = `SELECT document FROM items ORDER BY id`
	selectIDs      = `SELECT id FROM items ORDER BY id`
	selectExists   = `SELECT COUNT(*) FROM items WHERE id = ?`
	insertItem     = `INSERT INTO items (id, type, name, document) VALUES (?, ?, ?, ?)`
	updateItem     = `UPDATE items SET type = ?, name = ?, document = ? WHERE id = ?`
	deleteItem     = `DELETE FROM items WHERE id = ?`
)
