package lineage

import (
	"regexp"
	"strings"
)

// The scan rules below are the full pattern-matching surface of the
// extractor. Each rule is a pure function from one query-text string
// to its matches, so every rule can be tested in isolation. The rules
// recover only the subset of the scan-query syntax needed for lineage;
// they are not a grammar.

// ColumnRef is one 'Table'[Column] reference found in query text.
type ColumnRef struct {
	Table  string
	Column string
}

// JoinTarget is one join clause naming a table.
type JoinTarget struct {
	Table string
	Kind  JoinKind
}

// JoinCondition is one ON 'T1'[C1] = 'T2'[C2] clause with its resolved
// join kind.
type JoinCondition struct {
	From ColumnRef
	To   ColumnRef
	Kind JoinKind
}

// AggregationCall is one FUNC('Table'[Column]) call. A bare COUNT()
// has empty Table and Column.
type AggregationCall struct {
	Function string
	Table    string
	Column   string
}

// FilterPredicate is one comparison against a column in a WHERE
// clause, with the literal operand as written.
type FilterPredicate struct {
	Ref      ColumnRef
	Operator string
	Value    string
}

var (
	reFromTable = regexp.MustCompile(`(?i)\bFROM\s+'([^']+)'`)
	reColumnRef = regexp.MustCompile(`'([^']+)'\[([^\]\[]+)\]`)
	reJoin      = regexp.MustCompile(`(?i)\b(LEFT\s+OUTER\s+JOIN|INNER\s+JOIN)\s+'([^']+)'`)
	reOnClause  = regexp.MustCompile(`(?i)\bON\s+'([^']+)'\[([^\]\[]+)\]\s*=\s*'([^']+)'\[([^\]\[]+)\]`)
	reSelectKw  = regexp.MustCompile(`(?i)\bSELECT\b`)
	reFromKw    = regexp.MustCompile(`(?i)\bFROM\b`)
	reWhereKw   = regexp.MustCompile(`(?i)\bWHERE\b`)
	reAggCall   = regexp.MustCompile(`(?i)\b(SUM|COUNT|DCOUNT|MIN|MAX|AVG|SUMSQR)\s*\(\s*'([^']+)'\[([^\]\[]+)\]\s*\)`)
	reBareCount = regexp.MustCompile(`(?i)\bCOUNT\s*\(\s*\)`)
	reCallback  = regexp.MustCompile(`(?i)\bCallbackDataID\s*\(`)
	rePredicate = regexp.MustCompile(`'([^']+)'\[([^\]\[]+)\]\s*(=|<>|!=|<=|>=|<|>|\bIN\b)\s*('[^']*'|"[^"]*"|[\w.\-]+|\([^)]*\))`)
)

// scanRootTables returns the table names appearing as scan roots,
// i.e. FROM 'Name'.
func scanRootTables(text string) []string {
	var out []string
	for _, m := range reFromTable.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// scanColumnRefs returns every 'Table'[Column] reference in text.
func scanColumnRefs(text string) []ColumnRef {
	var out []ColumnRef
	for _, m := range reColumnRef.FindAllStringSubmatch(text, -1) {
		out = append(out, ColumnRef{Table: m[1], Column: m[2]})
	}
	return out
}

// scanSelectColumns returns the column references projected by the
// SELECT clause: everything between the first SELECT keyword and the
// next FROM keyword. Without both keywords no columns are returned.
func scanSelectColumns(text string) []ColumnRef {
	sel := reSelectKw.FindStringIndex(text)
	if sel == nil {
		return nil
	}
	rest := text[sel[1]:]
	from := reFromKw.FindStringIndex(rest)
	if from == nil {
		return nil
	}
	return scanColumnRefs(rest[:from[0]])
}

// scanJoinTargets returns the tables named by LEFT OUTER JOIN and
// INNER JOIN clauses.
func scanJoinTargets(text string) []JoinTarget {
	var out []JoinTarget
	for _, m := range reJoin.FindAllStringSubmatch(text, -1) {
		out = append(out, JoinTarget{Table: m[2], Kind: joinKeywordKind(m[1])})
	}
	return out
}

// scanJoinConditions returns all ON 'T1'[C1] = 'T2'[C2] clauses. The
// join kind of each clause is resolved by scanning backward from the
// ON position for the nearest preceding join keyword; absence of
// either keyword yields JoinUnknown.
func scanJoinConditions(text string) []JoinCondition {
	idxs := reOnClause.FindAllStringSubmatchIndex(text, -1)
	if idxs == nil {
		return nil
	}
	out := make([]JoinCondition, 0, len(idxs))
	for _, loc := range idxs {
		group := func(n int) string { return text[loc[2*n]:loc[2*n+1]] }
		out = append(out, JoinCondition{
			From: ColumnRef{Table: group(1), Column: group(2)},
			To:   ColumnRef{Table: group(3), Column: group(4)},
			Kind: resolveJoinKind(text, loc[0]),
		})
	}
	return out
}

// resolveJoinKind finds the join keyword nearest before position pos
// using plain substring search, matching the tracing subsystem's own
// resolution. Known limitation: a table or column name containing the
// literal text "INNER JOIN" or "LEFT OUTER JOIN" is misattributed;
// preserved for compatibility with the emitting engine.
func resolveJoinKind(text string, pos int) JoinKind {
	head := strings.ToUpper(text[:pos])
	left := strings.LastIndex(head, "LEFT OUTER JOIN")
	inner := strings.LastIndex(head, "INNER JOIN")
	switch {
	case left < 0 && inner < 0:
		return JoinUnknown
	case left > inner:
		return JoinLeftOuter
	default:
		return JoinInner
	}
}

func joinKeywordKind(keyword string) JoinKind {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(keyword)), "LEFT") {
		return JoinLeftOuter
	}
	return JoinInner
}

// scanWhereColumns returns the column references appearing after the
// first WHERE keyword.
func scanWhereColumns(text string) []ColumnRef {
	where := reWhereKw.FindStringIndex(text)
	if where == nil {
		return nil
	}
	return scanColumnRefs(text[where[1]:])
}

// scanFilterPredicates returns comparisons against columns after the
// first WHERE keyword, with operator and literal operand.
func scanFilterPredicates(text string) []FilterPredicate {
	where := reWhereKw.FindStringIndex(text)
	if where == nil {
		return nil
	}
	var out []FilterPredicate
	for _, m := range rePredicate.FindAllStringSubmatch(text[where[1]:], -1) {
		out = append(out, FilterPredicate{
			Ref:      ColumnRef{Table: m[1], Column: m[2]},
			Operator: strings.TrimSpace(m[3]),
			Value:    m[4],
		})
	}
	return out
}

// scanAggregations returns all aggregation calls. Bare COUNT() calls
// are reported with empty Table/Column so callers can count them
// without attaching them to a column.
func scanAggregations(text string) []AggregationCall {
	var out []AggregationCall
	for _, m := range reAggCall.FindAllStringSubmatch(text, -1) {
		out = append(out, AggregationCall{
			Function: strings.ToUpper(m[1]),
			Table:    m[2],
			Column:   m[3],
		})
	}
	for range reBareCount.FindAllString(text, -1) {
		out = append(out, AggregationCall{Function: "COUNT"})
	}
	return out
}

// scanCallbackColumns returns the column references inside
// CallbackDataID(...) wrappers. Those columns required per-row
// fallback evaluation in the storage engine.
func scanCallbackColumns(text string) []ColumnRef {
	var out []ColumnRef
	for _, loc := range reCallback.FindAllStringIndex(text, -1) {
		body, ok := balancedParen(text, loc[1]-1)
		if !ok {
			continue
		}
		out = append(out, scanColumnRefs(body)...)
	}
	return out
}

// balancedParen returns the text between the opening paren at open and
// its matching close paren.
func balancedParen(text string, open int) (string, bool) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[open+1 : i], true
			}
		}
	}
	return "", false
}
