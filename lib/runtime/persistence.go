package runtime

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrCellNotFound indicates the requested cell doesn't exist
var ErrCellNotFound = errors.New("cell not found")

// Persistence handles SQLite storage for object cells. Storage is an
// optional export: the registry and ledger stay process-lifetime and
// are rebuilt from scratch each run.
type Persistence struct {
	db     *sql.DB
	dbPath string
	g      *ReferenceGraph
	mu     sync.Mutex
}

// NewPersistence creates a new persistence layer
func NewPersistence(dbPath string, g *ReferenceGraph) (*Persistence, error) {
	p := &Persistence{
		dbPath: dbPath,
		g:      g,
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	p.db = db

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cells (
		id TEXT PRIMARY KEY,
		data JSON NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return p, nil
}

// Close closes the database connection
func (p *Persistence) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Save persists a cell to the database
func (p *Persistence) Save(h *StrongHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := fmt.Sprintf(`{"class":%s,"payload":%s}`,
		mustJSONString(h.Class()), h.Payload().ToJSON())

	_, err := p.db.Exec(
		"INSERT OR REPLACE INTO cells (id, data) VALUES (?, json(?))",
		h.ID(), data,
	)
	if err != nil {
		return fmt.Errorf("saving cell: %w", err)
	}
	return nil
}

// Load retrieves a cell from the database. A cell that is still alive
// in the graph is returned from there; a stored one re-enters the
// graph with strong count 1.
func (p *Persistence) Load(id string) (*StrongHandle, error) {
	if h := p.g.Find(id); h != nil {
		return h, nil
	}

	var data string
	err := p.db.QueryRow("SELECT data FROM cells WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCellNotFound
		}
		return nil, fmt.Errorf("querying cell: %w", err)
	}

	return p.cellFromJSON(id, data)
}

// cellFromJSON parses stored cell JSON and re-enters it in the graph
func (p *Persistence) cellFromJSON(id, jsonData string) (*StrongHandle, error) {
	var raw struct {
		Class   string      `json:"class"`
		Payload interface{} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(jsonData), &raw); err != nil {
		return nil, fmt.Errorf("parsing cell JSON: %w", err)
	}
	if raw.Class == "" {
		return nil, fmt.Errorf("cell %s missing class", id)
	}

	return p.g.adopt(id, raw.Class, p.valueFromInterface(raw.Payload)), nil
}

// valueFromInterface converts a JSON-parsed interface{} to a Value.
// Stored references resolve to live cells when possible and decay to
// the referenced ID as a string otherwise; callables are not
// serializable and come back as nil.
func (p *Persistence) valueFromInterface(v interface{}) Value {
	if v == nil {
		return NilValue()
	}
	switch x := v.(type) {
	case bool:
		return BoolValue(x)
	case float64:
		if x == float64(int64(x)) {
			return IntValue(int64(x))
		}
		return FloatValue(x)
	case string:
		return StringValue(x)
	case []interface{}:
		arr := NewArray()
		for _, elem := range x {
			arr.Push(p.valueFromInterface(elem))
		}
		return ArrayValue(arr)
	case map[string]interface{}:
		if refID, ok := x["_ref"].(string); ok {
			if h := p.g.Find(refID); h != nil {
				return RefValue(h)
			}
			return StringValue(refID)
		}
		if _, ok := x["_callable"]; ok {
			return NilValue()
		}
		if msg, ok := x["_error"].(string); ok {
			return ErrorValue(msg)
		}
		table := NewTable()
		for key, entry := range x {
			table.Put(key, p.valueFromInterface(entry))
		}
		return TableValue(table)
	default:
		return StringValue(fmt.Sprintf("%v", v))
	}
}

// Delete removes a cell from the database
func (p *Persistence) Delete(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.db.Exec("DELETE FROM cells WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting cell: %w", err)
	}
	return nil
}

// FindByClass returns all stored cell IDs for a given class
func (p *Persistence) FindByClass(className string) ([]string, error) {
	rows, err := p.db.Query("SELECT id FROM cells WHERE json_extract(data, '$.class') = ?", className)
	if err != nil {
		return nil, fmt.Errorf("querying by class: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveAll persists every live cell in the graph
func (p *Persistence) SaveAll() error {
	for _, stat := range p.g.Census() {
		h := p.g.Find(stat.ID)
		if h == nil {
			continue
		}
		err := p.Save(h)
		p.g.DropStrong(h)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads every stored cell that is not already alive. Cells are
// adopted into the graph before any payload is parsed, so stored
// references between cells in the same store resolve whatever the row
// order; only references to cells absent from both the graph and the
// store decay to strings.
func (p *Persistence) LoadAll() error {
	rows, err := p.db.Query("SELECT id, data FROM cells")
	if err != nil {
		return fmt.Errorf("querying all cells: %w", err)
	}
	defer rows.Close()

	type storedCell struct {
		id      string
		payload interface{}
	}
	var pending []storedCell

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return fmt.Errorf("scanning cell: %w", err)
		}
		if h := p.g.Find(id); h != nil {
			p.g.DropStrong(h)
			continue
		}
		var raw struct {
			Class   string      `json:"class"`
			Payload interface{} `json:"payload"`
		}
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load cell %s: %v\n", id, err)
			continue
		}
		if raw.Class == "" {
			fmt.Fprintf(os.Stderr, "Warning: failed to load cell %s: missing class\n", id)
			continue
		}
		p.g.adopt(id, raw.Class, NilValue())
		pending = append(pending, storedCell{id: id, payload: raw.Payload})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, sc := range pending {
		h := p.g.Find(sc.id)
		if h == nil {
			continue
		}
		h.SetPayload(p.valueFromInterface(sc.payload))
		p.g.DropStrong(h)
	}
	return nil
}

func mustJSONString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
