// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package nftjson

// Builder accumulates the commands for both managed tables and emits them
// in the fixed order §4.H/§4.J require: tables, sets, chains, flush chains
// (so a cycle's repeated AddRule calls never duplicate — the compiler
// rebuilds every chain's contents from scratch each tick, per §4.J), maps,
// then rules in chain-declaration order. This ordering is carried over from
// the teacher's ScriptBuilder.Build(), now producing typed commands instead
// of raw script lines.
type Builder struct {
	tables     []Table
	sets       []Set
	maps       []Map
	chains     []Chain
	chainOrder []chainKey
	rules      map[chainKey][]Rule
	elements   []Element
}

type chainKey struct {
	family Family
	table  string
	name   string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{rules: make(map[chainKey][]Rule)}
}

// AddTable registers a table to be created.
func (b *Builder) AddTable(t Table) { b.tables = append(b.tables, t) }

// AddSet registers a set to be created.
func (b *Builder) AddSet(s Set) { b.sets = append(b.sets, s) }

// AddMap registers a map to be created.
func (b *Builder) AddMap(m Map) { b.maps = append(b.maps, m) }

// AddElement registers set/map members to populate after creation.
func (b *Builder) AddElement(e Element) { b.elements = append(b.elements, e) }

// AddChain registers a chain to be created (and, every cycle, flushed
// before its rules are re-added — §4.J's "recreate them identically every
// cycle").
func (b *Builder) AddChain(c Chain) {
	key := chainKey{family: c.Family, table: c.Table, name: c.Name}
	if _, exists := b.rules[key]; !exists {
		b.chainOrder = append(b.chainOrder, key)
		b.rules[key] = nil
	}
	b.chains = append(b.chains, c)
}

// AddRule appends one rule to the named chain, in call order — the
// compiler is responsible for calling AddRule in the exact order §4.H's
// ordering rules specify (vital-ICMP allows, option-driven protections,
// user rules, tail action).
func (b *Builder) AddRule(r Rule) {
	key := chainKey{family: r.Family, table: r.Table, name: r.Chain}
	if _, exists := b.rules[key]; !exists {
		// A rule referencing a chain that wasn't explicitly added via
		// AddChain still needs a slot in chainOrder so Build emits it.
		b.chainOrder = append(b.chainOrder, key)
	}
	b.rules[key] = append(b.rules[key], r)
}

// Build renders the accumulated commands into a Ruleset, in the fixed
// order: tables, sets, chains, flush-chain (idempotency), maps, elements,
// rules (in chain declaration order).
func (b *Builder) Build() Ruleset {
	var cmds []Command

	for _, t := range b.tables {
		table := t
		cmds = append(cmds, Command{Add: &AddObject{Table: &table}})
	}

	for _, s := range b.sets {
		set := s
		cmds = append(cmds, Command{Add: &AddObject{Set: &set}})
	}

	for _, c := range b.chains {
		chain := c
		cmds = append(cmds, Command{Add: &AddObject{Chain: &chain}})
	}

	for _, key := range b.chainOrder {
		cmds = append(cmds, Command{Flush: &FlushObject{Chain: &ChainRef{
			Family: key.family, Table: key.table, Name: key.name,
		}}})
	}

	for _, m := range b.maps {
		mm := m
		cmds = append(cmds, Command{Add: &AddObject{Map: &mm}})
	}

	for _, e := range b.elements {
		elem := e
		cmds = append(cmds, Command{Add: &AddObject{Element: &elem}})
	}

	for _, key := range b.chainOrder {
		for _, r := range b.rules[key] {
			rule := r
			cmds = append(cmds, Command{Add: &AddObject{Rule: &rule}})
		}
	}

	return Ruleset{Commands: cmds}
}

// FlushDeleteAll returns the two-table flush-and-delete command sequence
// §4.H step 1 (the preflight disable-sentinel case) and §8 invariant 6
// require.
func FlushDeleteAll(inetTable, bridgeTable string) Ruleset {
	return Ruleset{Commands: []Command{
		{Flush: &FlushObject{Table: &TableRef{Family: FamilyInet, Name: inetTable}}},
		{Flush: &FlushObject{Table: &TableRef{Family: FamilyBridge, Name: bridgeTable}}},
		{Delete: &DeleteObject{Table: &TableRef{Family: FamilyInet, Name: inetTable}}},
		{Delete: &DeleteObject{Table: &TableRef{Family: FamilyBridge, Name: bridgeTable}}},
	}}
}
