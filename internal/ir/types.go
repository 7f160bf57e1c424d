package ir

import (
	"cmp"
	"slices"
)

// Kind names the entity kind a prototype materializes.
type Kind string

const (
	KindTrigger Kind = "trigger"
	KindGraph   Kind = "graph"
)

// ItemFlags distinguishes item prototypes from concrete items.
type ItemFlags uint8

const (
	// ItemPrototype marks an item that must be resolved through a row's links.
	ItemPrototype ItemFlags = 1 << iota
)

// Item is an item referenced by a sub-record.
type Item struct {
	ID    uint64
	Flags ItemFlags
}

// IsPrototype reports whether the item is an item prototype.
func (i Item) IsPrototype() bool {
	return i.Flags&ItemPrototype != 0
}

// ItemLink maps an item prototype to the item discovered from it for one row.
type ItemLink struct {
	PrototypeID uint64 `json:"prototype" yaml:"prototype"`
	ItemID      uint64 `json:"item" yaml:"item"`
}

// Row is one discovered resource: its macro values and item links.
type Row struct {
	Macros map[string]string
	Links  []ItemLink
}

// NewRow builds a row with links sorted by prototype id.
func NewRow(macros map[string]string, links ...ItemLink) Row {
	sorted := slices.Clone(links)
	slices.SortFunc(sorted, func(a, b ItemLink) int {
		return cmp.Compare(a.PrototypeID, b.PrototypeID)
	})
	if macros == nil {
		macros = map[string]string{}
	}
	return Row{Macros: macros, Links: sorted}
}

// Resolve returns the item discovered from the given item prototype.
func (r Row) Resolve(prototypeID uint64) (uint64, bool) {
	i, ok := slices.BinarySearchFunc(r.Links, prototypeID, func(l ItemLink, id uint64) int {
		return cmp.Compare(l.PrototypeID, id)
	})
	if !ok {
		return 0, false
	}
	return r.Links[i].ItemID, true
}

// TriggerPrototype is the template a trigger is materialized from.
// Expression is stored simplified: function references are deferred indices.
type TriggerPrototype struct {
	ID          uint64
	HostID      uint64
	Description string
	Expression  string
	Comments    string
	Priority    int
	Status      int
	Type        int
	URL         string
	Functions   []FunctionPrototype
	Tags        []TagPrototype
}

// TagPrototype is a tag of a trigger prototype. Both fields may hold macros.
type TagPrototype struct {
	Tag   string
	Value string
}

// FunctionPrototype is a function of a trigger prototype.
type FunctionPrototype struct {
	ID        uint64
	Index     uint64
	ItemID    uint64
	Function  string
	Parameter string
}

// Trigger is a trigger materialized from a prototype.
// Expression holds the simplified form while the trigger is in memory.
type Trigger struct {
	ID          ID
	Description Pending[string]
	Expression  Pending[string]
	Comments    Pending[string]
	Priority    Pending[int]
	Type        Pending[int]
	URL         Pending[string]
	Status      int
	Flags       Flags
	Functions   []*Function
	Tags        []*TriggerTag
}

// IsNew reports whether the trigger has not been persisted yet.
func (t *Trigger) IsNew() bool {
	return !t.ID.Valid()
}

// Discovered reports whether a row claimed the trigger in this run.
func (t *Trigger) Discovered() bool {
	return t.Flags.Has(FlagDiscovered)
}

// Changed reports whether any persisted trigger column has a pending change.
func (t *Trigger) Changed() bool {
	return t.Description.Changed() || t.Expression.Changed() || t.Comments.Changed() ||
		t.Priority.Changed() || t.Type.Changed() || t.URL.Changed()
}

// Function is a function of a materialized trigger.
// Index is the deferred index used by the simplified expression.
type Function struct {
	ID        ID
	Index     Pending[uint64]
	ItemID    Pending[uint64]
	Function  Pending[string]
	Parameter Pending[string]
	Flags     Flags
}

// Changed reports whether any persisted function column has a pending change.
func (f *Function) Changed() bool {
	return f.ItemID.Changed() || f.Function.Changed() || f.Parameter.Changed()
}

// TriggerTag is a tag of a materialized trigger.
type TriggerTag struct {
	ID    ID
	Tag   Pending[string]
	Value Pending[string]
	Flags Flags
}

// Changed reports whether the tag or its value has a pending change.
func (t *TriggerTag) Changed() bool {
	return t.Tag.Changed() || t.Value.Changed()
}

// Y axis limit types of a graph.
const (
	YAxisCalculated = 0
	YAxisFixed      = 1
	YAxisItemValue  = 2
)

// GraphPrototype is the template a graph is materialized from.
type GraphPrototype struct {
	ID             uint64
	HostID         uint64
	Name           string
	Width          int
	Height         int
	YAxisMin       float64
	YAxisMax       float64
	ShowWorkPeriod int
	ShowTriggers   int
	GraphType      int
	ShowLegend     int
	Show3D         int
	PercentLeft    float64
	PercentRight   float64
	YMinType       int
	YMaxType       int
	YMinItemID     ID
	YMaxItemID     ID
	Items          []GraphItemPrototype
}

// GraphItemPrototype is an item of a graph prototype.
type GraphItemPrototype struct {
	ID        uint64
	ItemID    uint64
	DrawType  int
	SortOrder int
	Color     string
	YAxisSide int
	CalcFnc   int
	Type      int
}

// Graph is a graph materialized from a prototype.
type Graph struct {
	ID             ID
	Name           Pending[string]
	Width          Pending[int]
	Height         Pending[int]
	YAxisMin       Pending[float64]
	YAxisMax       Pending[float64]
	ShowWorkPeriod Pending[int]
	ShowTriggers   Pending[int]
	GraphType      Pending[int]
	ShowLegend     Pending[int]
	Show3D         Pending[int]
	PercentLeft    Pending[float64]
	PercentRight   Pending[float64]
	YMinType       Pending[int]
	YMaxType       Pending[int]
	YMinItemID     Pending[ID]
	YMaxItemID     Pending[ID]
	Flags          Flags
	Items          []*GraphItem
}

// IsNew reports whether the graph has not been persisted yet.
func (g *Graph) IsNew() bool {
	return !g.ID.Valid()
}

// Discovered reports whether a row claimed the graph in this run.
func (g *Graph) Discovered() bool {
	return g.Flags.Has(FlagDiscovered)
}

// Changed reports whether any persisted graph column has a pending change.
func (g *Graph) Changed() bool {
	return g.Name.Changed() || g.Width.Changed() || g.Height.Changed() ||
		g.YAxisMin.Changed() || g.YAxisMax.Changed() || g.ShowWorkPeriod.Changed() ||
		g.ShowTriggers.Changed() || g.GraphType.Changed() || g.ShowLegend.Changed() ||
		g.Show3D.Changed() || g.PercentLeft.Changed() || g.PercentRight.Changed() ||
		g.YMinType.Changed() || g.YMaxType.Changed() || g.YMinItemID.Changed() ||
		g.YMaxItemID.Changed()
}

// GraphItem is an item of a materialized graph.
type GraphItem struct {
	ID        ID
	ItemID    Pending[uint64]
	DrawType  Pending[int]
	SortOrder Pending[int]
	Color     Pending[string]
	YAxisSide Pending[int]
	CalcFnc   Pending[int]
	Type      Pending[int]
	Flags     Flags
}

// Changed reports whether any persisted graph item column has a pending change.
func (gi *GraphItem) Changed() bool {
	return gi.ItemID.Changed() || gi.DrawType.Changed() || gi.SortOrder.Changed() ||
		gi.Color.Changed() || gi.YAxisSide.Changed() || gi.CalcFnc.Changed() ||
		gi.Type.Changed()
}
