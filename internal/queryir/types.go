package queryir

// Statement is a data-changing statement against one table.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode()

	// Target returns the table the statement writes.
	Target() string
}

// Predicate is a WHERE condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Insert adds Rows to Table. Every row has one value per column.
//
//	INSERT INTO <table> (<columns>) VALUES (...), (...)
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]any
}

func (Insert) statementNode() {}
func (s Insert) Target() string { return s.Table }

// Assignment sets one column in an Update.
type Assignment struct {
	Column string
	Value  any
}

// Update changes the listed columns of the rows matching Where.
//
//	UPDATE <table> SET <col>=?, ... WHERE <where>
type Update struct {
	Table string
	Set   []Assignment
	Where Predicate
}

func (Update) statementNode() {}
func (s Update) Target() string { return s.Table }

// Delete removes the rows matching Where.
//
//	DELETE FROM <table> WHERE <where>
type Delete struct {
	Table string
	Where Predicate
}

func (Delete) statementNode() {}
func (s Delete) Target() string { return s.Table }

// Equals matches rows whose column equals Value.
type Equals struct {
	Column string
	Value  any
}

func (Equals) predicateNode() {}

// In matches rows whose column is one of Values.
type In struct {
	Column string
	Values []any
}

func (In) predicateNode() {}

// And matches rows satisfying every predicate.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// IDs converts identifiers to In values.
func IDs(ids []uint64) []any {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}
